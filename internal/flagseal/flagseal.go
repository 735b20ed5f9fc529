// Package flagseal time-seals the flag file until a release time.
//
// The flag contents are encrypted with AES-256-GCM under a fresh DEK; the
// DEK is tlock-encrypted to the drand round covering the release time.
// Until that round's beacon is published the flag cannot be recovered,
// not even by the challenge author.
package flagseal

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gate/internal/timeauth"
)

// Seal states recorded in the metadata file.
const (
	StateSealed   = "sealed"
	StateReleased = "released"
)

// ErrNotYetReleased is returned by Unseal before the release round.
var ErrNotYetReleased = errors.New("flag is not yet released")

// Meta describes a sealed flag file. Stored beside the sealed payload.
type Meta struct {
	State       string    `json:"state"`
	ReleaseTime time.Time `json:"release_time"`
	Authority   string    `json:"time_authority"`
	Network     string    `json:"network"`
	TargetRound uint64    `json:"target_round"`
	CreatedAt   time.Time `json:"created_at"`
	Algorithm   string    `json:"algorithm"`
	Nonce       string    `json:"nonce"`
	DEKTlockB64 string    `json:"dek_tlock_b64"`
}

// SealedPath returns the sealed payload location for a flag file.
func SealedPath(flagPath string) string {
	return flagPath + ".sealed"
}

// MetaPath returns the metadata location for a flag file.
func MetaPath(flagPath string) string {
	return flagPath + ".meta.json"
}

// ParseReleaseTime parses and validates a release timestamp. Accepts only
// RFC3339, rejects past timestamps, returns the time normalized to UTC.
func ParseReleaseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time format, expected RFC3339")
	}

	t = t.UTC()
	if !t.After(time.Now().UTC()) {
		return time.Time{}, fmt.Errorf("release time must be in the future")
	}

	return t, nil
}

// encryptPayload encrypts plaintext with AES-256-GCM under a fresh DEK.
// The returned DEK must be wrapped before storage and zeroed after use.
func encryptPayload(plaintext []byte) (ciphertext []byte, nonceB64 string, dek []byte, err error) {
	dek = make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return nil, "", nil, fmt.Errorf("failed to generate DEK: %w", err)
	}

	block, err := aes.NewCipher(dek)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, "", nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	nonceB64 = base64.StdEncoding.EncodeToString(nonce)

	return ciphertext, nonceB64, dek, nil
}

// LoadMeta reads the metadata for a sealed flag.
func LoadMeta(flagPath string) (Meta, error) {
	data, err := os.ReadFile(MetaPath(flagPath))
	if err != nil {
		return Meta{}, fmt.Errorf("failed to read seal metadata: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("failed to parse seal metadata: %w", err)
	}

	return meta, nil
}

// saveMeta writes metadata atomically.
func saveMeta(flagPath string, meta Meta) error {
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seal metadata: %w", err)
	}

	metaPath := MetaPath(flagPath)
	tmpPath := metaPath + ".tmp"
	if err := os.WriteFile(tmpPath, metaJSON, 0600); err != nil {
		return fmt.Errorf("failed to write seal metadata: %w", err)
	}

	if err := os.Rename(tmpPath, metaPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to update seal metadata: %w", err)
	}

	return nil
}

// Seal encrypts the flag file until releaseTime and removes the plaintext
// file. Writes <flag>.sealed and <flag>.meta.json.
func Seal(flagPath string, releaseTime time.Time, authority *timeauth.DrandAuthority) error {
	if _, err := os.Stat(SealedPath(flagPath)); err == nil {
		return fmt.Errorf("flag is already sealed: %s", SealedPath(flagPath))
	}

	plaintext, err := os.ReadFile(flagPath)
	if err != nil {
		return fmt.Errorf("cannot read flag file: %w", err)
	}
	if len(plaintext) == 0 {
		return errors.New("flag file is empty")
	}

	targetRound, err := authority.RoundAt(releaseTime)
	if err != nil {
		return err
	}

	ciphertext, nonceB64, dek, err := encryptPayload(plaintext)
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}
	defer func() {
		for i := range dek {
			dek[i] = 0
		}
	}()

	dekTlock, err := authority.Timelock.Encrypt(dek, targetRound)
	if err != nil {
		return fmt.Errorf("failed to time-lock DEK: %w", err)
	}

	meta := Meta{
		State:       StateSealed,
		ReleaseTime: releaseTime.UTC(),
		Authority:   authority.Name(),
		Network:     authority.NetworkName,
		TargetRound: targetRound,
		CreatedAt:   time.Now().UTC(),
		Algorithm:   "aes-256-gcm",
		Nonce:       nonceB64,
		DEKTlockB64: dekTlock,
	}

	if err := os.WriteFile(SealedPath(flagPath), ciphertext, 0600); err != nil {
		return fmt.Errorf("cannot write sealed payload: %w", err)
	}

	if err := saveMeta(flagPath, meta); err != nil {
		os.Remove(SealedPath(flagPath))
		return err
	}

	if err := os.Remove(flagPath); err != nil {
		return fmt.Errorf("cannot remove plaintext flag: %w", err)
	}

	return nil
}

// Unseal restores the plaintext flag file once the release round has been
// reached. The restore is atomic: the plaintext is written beside the
// target and renamed into place. Returns ErrNotYetReleased (wrapped)
// before the release round.
func Unseal(ctx context.Context, flagPath string, authority *timeauth.DrandAuthority) error {
	meta, err := LoadMeta(flagPath)
	if err != nil {
		return err
	}

	if meta.State == StateReleased {
		if _, err := os.Stat(flagPath); err == nil {
			return nil
		}
		// Released but the flag file is gone: fall through and restore.
	}

	canUnlock, err := authority.CanUnlock(ctx, meta.TargetRound)
	if err != nil {
		return fmt.Errorf("cannot check release round: %w", err)
	}
	if !canUnlock {
		return fmt.Errorf("%w (release time %s, round %d)",
			ErrNotYetReleased, meta.ReleaseTime.Format(time.RFC3339), meta.TargetRound)
	}

	dek, err := authority.Timelock.Decrypt(meta.DEKTlockB64)
	if err != nil {
		return fmt.Errorf("failed to decrypt time-locked DEK: %w", err)
	}
	defer func() {
		for i := range dek {
			dek[i] = 0
		}
	}()

	ciphertext, err := os.ReadFile(SealedPath(flagPath))
	if err != nil {
		return fmt.Errorf("cannot read sealed payload: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(meta.Nonce)
	if err != nil {
		return fmt.Errorf("failed to decode nonce: %w", err)
	}

	block, err := aes.NewCipher(dek)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("failed to decrypt flag: %w", err)
	}

	pendingPath := flagPath + ".pending"
	if err := os.WriteFile(pendingPath, plaintext, 0600); err != nil {
		return fmt.Errorf("cannot write restored flag: %w", err)
	}

	meta.State = StateReleased
	if err := saveMeta(flagPath, meta); err != nil {
		os.Remove(pendingPath)
		return err
	}

	if err := os.Rename(pendingPath, flagPath); err != nil {
		return fmt.Errorf("cannot finalize restored flag: %w", err)
	}

	return nil
}
