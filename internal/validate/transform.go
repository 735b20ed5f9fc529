package validate

// Transform applies the reversible byte transform linking encoded and
// plaintext bytes. It is its own inverse.
func Transform(b, key byte) byte {
	return b ^ key
}

// TransformAll applies Transform to every byte of buf and returns the
// result as a new slice. buf is never modified.
func TransformAll(buf []byte, key byte) []byte {
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = Transform(b, key)
	}
	return out
}
