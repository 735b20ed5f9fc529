package validate

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Build-time challenge constants. Read-only for the process lifetime,
// overridable at link time the way the reference binary took its key from
// a generated header:
//
//	go build -ldflags "-X gate/internal/validate.DefaultPlaintext=... -X gate/internal/validate.DefaultKeyHex=7f"
var (
	DefaultPlaintext = "ictf{BINARY_AGENTIC_CHALLENGE}"
	DefaultKeyHex    = "42"
)

// Challenge holds the fixed reference data a candidate is checked against:
// the reference plaintext, the transform key, the structural check
// positions, and the aggregate target constants derived from the plaintext.
type Challenge struct {
	Plaintext []byte
	Key       byte
	Positions []int

	// TargetSum and TargetProd are derived once from the plaintext.
	// TargetProd is only meaningful when the plaintext has at least
	// three bytes.
	TargetSum  int
	TargetProd int
}

var defaultChallenge = New([]byte(DefaultPlaintext), mustParseKey(DefaultKeyHex), nil)

// mustParseKey parses the build-time transform key. A bad key is a build
// misconfiguration, not a runtime condition.
func mustParseKey(s string) byte {
	k, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		panic(fmt.Sprintf("invalid build-time transform key %q: %v", s, err))
	}
	return byte(k)
}

// Default returns the built-in challenge.
func Default() Challenge {
	return defaultChallenge
}

// New builds a Challenge from a reference plaintext and transform key,
// deriving the aggregate target constants. A nil positions slice selects
// the structural positions of the plaintext.
func New(plaintext []byte, key byte, positions []int) Challenge {
	if positions == nil {
		positions = StructuralPositions(plaintext)
	}

	c := Challenge{
		Plaintext: plaintext,
		Key:       key,
		Positions: positions,
		TargetSum: signedSum(plaintext),
	}

	if len(plaintext) >= 3 {
		c.TargetProd = signedProduct3(plaintext)
	}

	return c
}

// StructuralPositions selects the spot-check index set for a plaintext:
// the first character, the first character inside the opening brace (when
// present), the first separator underscore (when present), and the last
// character. The result is ascending and free of duplicates.
func StructuralPositions(plaintext []byte) []int {
	if len(plaintext) == 0 {
		return nil
	}

	last := len(plaintext) - 1
	positions := []int{0, last}

	if i := bytes.IndexByte(plaintext, '{'); i >= 0 && i+1 < last {
		positions = append(positions, i+1)
	}
	if i := bytes.IndexByte(plaintext, '_'); i >= 0 {
		positions = append(positions, i)
	}

	sort.Ints(positions)

	deduped := positions[:1]
	for _, p := range positions[1:] {
		if p != deduped[len(deduped)-1] {
			deduped = append(deduped, p)
		}
	}

	return deduped
}

// signedSum adds every byte of buf as a signed 8-bit value. This matches
// the signed-char arithmetic of the reference binary.
func signedSum(buf []byte) int {
	sum := 0
	for _, b := range buf {
		sum += int(int8(b))
	}
	return sum
}

// signedProduct3 multiplies the first three bytes of buf as signed 8-bit
// values and reduces modulo 256 with truncated division, so a negative
// product yields a negative result. buf must have at least three bytes.
func signedProduct3(buf []byte) int {
	return (int(int8(buf[0])) * int(int8(buf[1])) * int(int8(buf[2]))) % 256
}
