package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// Descriptor is a recursive type description attached to a port.
// The variants are Simple, Parameterized and TypeVar.
type Descriptor interface {
	// BaseType returns the container or scalar type. A TypeVar reports ANY.
	BaseType() PortType
	// String renders the descriptor, e.g. "LIST<NUMBER>" or "T".
	String() string
	// Resolve substitutes bound variables recursively.
	Resolve(b Bindings) Descriptor
	// HasTypeVariables reports whether any TypeVar remains anywhere in the descriptor.
	HasTypeVariables() bool
	isDescriptor()
}

// Bindings maps type variable names to descriptors. One Bindings value belongs to one node instance.
type Bindings map[string]Descriptor

// Clone returns a shallow copy.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Simple is a non-parameterized type.
type Simple struct {
	Type PortType
}

// Parameterized is a container with type arguments, e.g. LIST<T> or MAP<STRING, NUMBER>.
type Parameterized struct {
	Base PortType
	Args []Descriptor
}

// TypeVar is a variable resolved per node instance through unification.
type TypeVar struct {
	Name string
}

// Of wraps a port type as a Simple descriptor.
func Of(t PortType) Descriptor { return Simple{Type: t} }

// ListOf returns LIST<elem>.
func ListOf(elem Descriptor) Descriptor {
	return Parameterized{Base: List, Args: []Descriptor{elem}}
}

// MapOf returns MAP<key, value>.
func MapOf(key, value Descriptor) Descriptor {
	return Parameterized{Base: Map, Args: []Descriptor{key, value}}
}

// Var returns a type variable.
func Var(name string) Descriptor { return TypeVar{Name: name} }

func (Simple) isDescriptor()        {}
func (Parameterized) isDescriptor() {}
func (TypeVar) isDescriptor()       {}

func (s Simple) BaseType() PortType        { return s.Type }
func (p Parameterized) BaseType() PortType { return p.Base }
func (TypeVar) BaseType() PortType         { return Any }

func (s Simple) String() string { return s.Type.String() }

func (p Parameterized) String() string {
	args := make([]string, len(p.Args))
	for i, a := range p.Args {
		args[i] = a.String()
	}
	return p.Base.String() + "<" + strings.Join(args, ", ") + ">"
}

func (v TypeVar) String() string { return v.Name }

func (s Simple) Resolve(Bindings) Descriptor { return s }

func (p Parameterized) Resolve(b Bindings) Descriptor {
	return resolve(p, b, nil)
}

func (v TypeVar) Resolve(b Bindings) Descriptor {
	return resolve(v, b, nil)
}

// resolve substitutes variables, stopping at a variable already being expanded so that
// self-referential bindings (T -> LIST<T>) reach a fixed point instead of recursing forever.
func resolve(d Descriptor, b Bindings, expanding map[string]bool) Descriptor {
	switch x := d.(type) {
	case Simple:
		return x
	case Parameterized:
		args := make([]Descriptor, len(x.Args))
		for i, a := range x.Args {
			args[i] = resolve(a, b, expanding)
		}
		return Parameterized{Base: x.Base, Args: args}
	case TypeVar:
		bound, ok := b[x.Name]
		if !ok || expanding[x.Name] {
			return x
		}
		next := make(map[string]bool, len(expanding)+1)
		for k := range expanding {
			next[k] = true
		}
		next[x.Name] = true
		return resolve(bound, b, next)
	default:
		return d
	}
}

func (Simple) HasTypeVariables() bool { return false }

func (p Parameterized) HasTypeVariables() bool {
	for _, a := range p.Args {
		if a.HasTypeVariables() {
			return true
		}
	}
	return false
}

func (TypeVar) HasTypeVariables() bool { return true }

// Equal compares two descriptors structurally.
func Equal(a, b Descriptor) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// ParseDescriptor parses the String form back into a descriptor.
// Port type names (any case) denote port types, every other identifier is a type variable.
func ParseDescriptor(s string) (Descriptor, error) {
	p := &descParser{src: s}
	d, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("descriptor %q: unexpected %q at %d", s, p.src[p.pos:], p.pos)
	}
	return d, nil
}

// MustParseDescriptor panics on malformed input. Intended for static port tables.
func MustParseDescriptor(s string) Descriptor {
	d, err := ParseDescriptor(s)
	if err != nil {
		panic(err)
	}
	return d
}

type descParser struct {
	src string
	pos int
}

func (p *descParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *descParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *descParser) parse() (Descriptor, error) {
	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("descriptor %q: expected identifier at %d", p.src, p.pos)
	}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		base, err := ParsePortType(name)
		if err != nil {
			return nil, fmt.Errorf("descriptor %q: %w", p.src, err)
		}
		p.pos++
		var args []Descriptor
		for {
			arg, err := p.parse()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return nil, fmt.Errorf("descriptor %q: missing '>'", p.src)
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] == '>' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("descriptor %q: unexpected %q at %d", p.src, p.src[p.pos], p.pos)
		}
		return Parameterized{Base: base, Args: args}, nil
	}

	if t, err := ParsePortType(name); err == nil {
		return Simple{Type: t}, nil
	}
	return TypeVar{Name: name}, nil
}
