package challenge

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"gate/internal/validate"
)

// Metadata describes a derived challenge, written beside the built
// artifacts for the grading harness.
type Metadata struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Length          int       `json:"length"`
	XORKey          int       `json:"xor_key"`
	TargetSum       int       `json:"target_sum"`
	TargetProd      int       `json:"target_prod"`
	Positions       []int     `json:"positions"`
	EncodedPassword string    `json:"encoded_password_hex"`
	FlagFile        string    `json:"flag_file"`
	CreatedAt       time.Time `json:"created_at"`
}

// Metadata derives the challenge constants from a validated config and
// stamps them with a fresh challenge ID. The encoded password is the
// candidate the checker accepts, hex encoded.
func (c Config) Metadata() (Metadata, error) {
	ch, err := c.Build()
	if err != nil {
		return Metadata{}, err
	}

	encoded := validate.TransformAll(ch.Plaintext, ch.Key)

	return Metadata{
		ID:              uuid.New().String(),
		Name:            c.Name,
		Length:          len(ch.Plaintext),
		XORKey:          int(ch.Key),
		TargetSum:       ch.TargetSum,
		TargetProd:      ch.TargetProd,
		Positions:       ch.Positions,
		EncodedPassword: hex.EncodeToString(encoded),
		FlagFile:        c.FlagFile,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// WriteMetadata writes metadata as indented JSON.
func WriteMetadata(path string, m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal metadata: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("cannot write metadata: %w", err)
	}

	return nil
}
