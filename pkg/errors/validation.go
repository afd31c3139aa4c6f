package errors

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseNodePath parses a node path of the form "12" or "12/5/3": the id of
// a root node followed by the ids of nodes inside each nested container.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum of 32 segments
//   - Every segment is a positive decimal integer
func ParseNodePath(path string) ([]int, error) {
	if path == "" {
		return nil, New(ErrCodeInvalidPath, "node path cannot be empty")
	}
	for _, r := range path {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return nil, New(ErrCodeInvalidPath, "node path contains invalid characters")
		}
	}

	const maxSegments = 32
	parts := strings.Split(path, "/")
	if len(parts) > maxSegments {
		return nil, New(ErrCodeInvalidPath, "node path too deep (max %d segments)", maxSegments)
	}

	ids := make([]int, len(parts))
	for i, p := range parts {
		if p == "" {
			return nil, New(ErrCodeInvalidPath, "node path %q has an empty segment", path)
		}
		id, err := strconv.Atoi(p)
		if err != nil || id <= 0 || p[0] == '+' {
			return nil, New(ErrCodeInvalidPath, "node path segment %q is not a node id", p)
		}
		ids[i] = id
	}
	return ids, nil
}

// ValidateSlot checks that slot addresses one of count slots.
func ValidateSlot(slot, count int) error {
	if slot < 0 || slot >= count {
		return New(ErrCodeInvalidInput, "slot %d out of range (node has %d)", slot, count)
	}
	return nil
}

// ValidateFormat checks that format is one of the allowed output formats.
func ValidateFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return New(ErrCodeUnsupported, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
}
