package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks values before they are written: a key matching a pattern is stored as Mask,
// and so is every nested object field whose name matches.
// Reads return what was stored, so redacted values never come back.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) mask(key string, v domain.Value) domain.Value {
	if m.matches(key) {
		return domain.Str(Mask)
	}
	obj, ok := domain.Raw(v).(map[string]any)
	if !ok {
		return v
	}
	masked, err := domain.FromAny(maskMap(obj, m.patterns))
	if err != nil {
		return v
	}
	return masked
}

func (m *piiMiddleware) Get(ctx context.Context, scriptID, key string) (domain.Value, error) {
	return m.next.Get(ctx, scriptID, key)
}

func (m *piiMiddleware) Set(ctx context.Context, scriptID, key string, value domain.Value) error {
	return m.next.Set(ctx, scriptID, key, m.mask(key, value))
}

func (m *piiMiddleware) GetOrCreate(ctx context.Context, scriptID, key string, create func() domain.Value) (domain.Value, error) {
	return m.next.GetOrCreate(ctx, scriptID, key, func() domain.Value {
		return m.mask(key, create())
	})
}

func (m *piiMiddleware) Update(ctx context.Context, scriptID, key string, fn func(domain.Value) (domain.Value, error)) (domain.Value, error) {
	return m.next.Update(ctx, scriptID, key, func(current domain.Value) (domain.Value, error) {
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		return m.mask(key, next), nil
	})
}

func (m *piiMiddleware) Delete(ctx context.Context, scriptID, key string) error {
	return m.next.Delete(ctx, scriptID, key)
}

func (m *piiMiddleware) Keys(ctx context.Context, scriptID string) ([]string, error) {
	return m.next.Keys(ctx, scriptID)
}

func (m *piiMiddleware) Clear(ctx context.Context, scriptID string) error {
	return m.next.Clear(ctx, scriptID)
}

func (m *piiMiddleware) Close() error {
	return closeNext(m.next)
}

// maskMap returns a copy of in with matching keys masked, recursing into nested objects.
func maskMap(in map[string]any, patterns []*regexp.Regexp) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				out[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			out[k] = maskMap(sub, patterns)
		} else {
			out[k] = v
		}
	}
	return out
}
