// Package cursor encodes opaque keyset-pagination tokens for listings
// ordered by descending id, such as the activity log.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Cursor marks the last entry of a page. Scope fingerprints the filter the
// page was listed under so a token cannot be replayed against another one.
type Cursor struct {
	LastID int64  `json:"last_id"`
	Scope  string `json:"scope"`
}

// New returns a cursor positioned after lastID for the filter described by
// scopeParts.
func New(lastID int64, scopeParts ...string) (*Cursor, error) {
	if lastID <= 0 {
		return nil, fmt.Errorf("last ID must be positive, got %d", lastID)
	}
	return &Cursor{LastID: lastID, Scope: Scope(scopeParts...)}, nil
}

// Scope fingerprints a filter. Order matters.
func Scope(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:8])
}

// Encode returns the URL-safe token for c
func (c *Cursor) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a token produced by Encode
func Decode(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty cursor string")
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}
	if c.LastID <= 0 {
		return nil, fmt.Errorf("cursor missing last ID")
	}
	if c.Scope == "" {
		return nil, fmt.Errorf("cursor missing scope")
	}
	return &c, nil
}

// Match reports an error when c was issued for a different filter
func (c *Cursor) Match(scopeParts ...string) error {
	if c.Scope != Scope(scopeParts...) {
		return fmt.Errorf("cursor was issued for a different filter")
	}
	return nil
}
