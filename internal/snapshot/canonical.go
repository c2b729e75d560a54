package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSON produces a deterministic JSON encoding of v:
// - object keys sorted lexicographically
// - no insignificant whitespace
// - no HTML escaping
// Two snapshots of the same data always encode to the same bytes.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return Canonicalize(raw)
}

// Canonicalize rewrites an arbitrary JSON document into canonical form
func Canonicalize(raw []byte) ([]byte, error) {
	return reencode(raw, "")
}

// PrettyJSON produces indented JSON with sorted keys. It is stable across
// builds, which makes it the form snapshots are diffed in.
func PrettyJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return reencode(raw, "  ")
}

func reencode(raw []byte, indent string) ([]byte, error) {
	// Numbers stay json.Number so ids survive without float rounding.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", indent)
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	// Remove trailing newline added by Encode
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ComputeRev hashes canonical bytes into "sha256:<hex>"
func ComputeRev(canonical []byte) string {
	hash := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// Rev returns the revision of v: the hash of its canonical encoding
func Rev(v any) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return ComputeRev(data), nil
}
