package lattice

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxInputSize bounds every string of trigger inputs when nothing else is configured.
	DefaultMaxInputSize = 4096

	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "LATTICE_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInputs cleans trigger inputs before they become values.
// Every string, map key included, is checked against limit and for valid UTF-8,
// and loses its control characters except newline, tab and carriage return.
// Oversized input is rejected rather than truncated. A limit <= 0 selects the default.
func SanitizeInputs(inputs map[string]any, limit int) (map[string]any, error) {
	if inputs == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultMaxInputSize()
	}
	out, err := sanitizeAny(inputs, limit, "")
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func sanitizeAny(v any, limit int, path string) (any, error) {
	switch t := v.(type) {
	case string:
		s, err := sanitizeString(t, limit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pathOrRoot(path), err)
		}
		return s, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			key, err := sanitizeString(k, limit)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			clean, err := sanitizeAny(item, limit, join(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = clean
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			clean, err := sanitizeAny(item, limit, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = clean
		}
		return out, nil
	default:
		return v, nil
	}
}

func sanitizeString(input string, limit int) (string, error) {
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "input"
	}
	return path
}

func defaultMaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
