// Package fingerprint computes the content digests the runner uses to decide
// whether a phase is up to date. Digests are SHA-256 and rendered as
// "sha256:<hex>" so the hash function can be swapped without ambiguity.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const prefix = "sha256:"

// Bytes digests an in-memory payload.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return prefix + hex.EncodeToString(sum[:])
}

// File digests the contents of a single file.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Directory digests a directory declared as a single artifact: the digest of
// the canonical listing "name\0digest\n" sorted by relative name.
func Directory(path string) (string, error) {
	type entry struct {
		name   string
		digest string
	}
	var entries []entry
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		digest, err := File(p)
		if err != nil {
			return err
		}
		entries = append(entries, entry{name: filepath.ToSlash(rel), digest: digest})
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.name))
		h.Write([]byte{0})
		h.Write([]byte(e.digest))
		h.Write([]byte{'\n'})
	}
	return prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Path digests a file or, when path is a directory, its canonical listing.
func Path(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return Directory(path)
	}
	return File(path)
}

// Config digests a phase's effective configuration: keys sorted, values
// rendered with %v, whitespace normalized. The same map always yields the
// same digest regardless of insertion order.
func Config(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(normalizeValue(values[k]))
		sb.WriteByte('\n')
	}
	return Bytes([]byte(sb.String()))
}

func normalizeValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.Join(strings.Fields(value), " ")
	case []string:
		parts := make([]string, len(value))
		for i, s := range value {
			parts[i] = strings.Join(strings.Fields(s), " ")
		}
		return strings.Join(parts, ",")
	case float64:
		return fmt.Sprintf("%g", value)
	case float32:
		return fmt.Sprintf("%g", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
