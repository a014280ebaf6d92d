package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// DatasetFingerprint identifies the exact table a model was trained on
type DatasetFingerprint Hash

func (h DatasetFingerprint) String() string { return Hash(h).String() }

// ComputeDatasetFingerprint hashes a header row followed by data rows.
// Cells are joined with unit/record separators so "a,b" and "a","b" differ.
func ComputeDatasetFingerprint(header []string, rows [][]string) DatasetFingerprint {
	var data strings.Builder
	data.WriteString(strings.Join(header, "\x1f"))
	data.WriteString("\x1e")
	for _, row := range rows {
		data.WriteString(strings.Join(row, "\x1f"))
		data.WriteString("\x1e")
	}
	return DatasetFingerprint(NewHash([]byte(data.String())))
}
