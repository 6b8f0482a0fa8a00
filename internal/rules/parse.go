package rules

import (
	"fmt"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/parser"
	"cuelang.org/go/cue/token"
)

// Separator splits a rule string into segments.
const Separator = '|'

// Segment is one parsed rule segment.
type Segment struct {
	// Raw is the trimmed segment text, e.g. `minLength(3)`.
	Raw string

	// Name is the validator name.
	Name string

	// Args holds the evaluated literal arguments. Integers are int64,
	// decimals float64, lists []any and structs map[string]any.
	Args []any
}

// String returns the segment text.
func (s Segment) String() string {
	return s.Raw
}

// SyntaxError reports a segment that cannot be parsed.
type SyntaxError struct {
	// Segment is the offending segment text.
	Segment string

	// Message describes the failure.
	Message string

	// Err is the underlying evaluation error, if any.
	Err error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule %q: %s: %v", e.Segment, e.Message, e.Err)
	}
	return fmt.Sprintf("rule %q: %s", e.Segment, e.Message)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

var (
	segmentPattern = regexp.MustCompile(`^([A-Za-z0-9_]+)(?:\((.*)\))?$`)
	namePattern    = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// ValidName reports whether name is a valid validator name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Parse splits rule at top-level separators and parses each segment.
// Empty segments are skipped, so "" parses to no segments.
func Parse(rule string) ([]Segment, error) {
	parts, err := Split(rule)
	if err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := ParseSegment(part)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// Split cuts rule at separators that are outside quotes, parentheses,
// brackets and braces. Segments are trimmed; empty ones are dropped.
func Split(rule string) ([]string, error) {
	var (
		parts []string
		depth int
		quote rune
		esc   bool
		start int
	)
	flush := func(end int) {
		part := strings.TrimSpace(rule[start:end])
		if part != "" {
			parts = append(parts, part)
		}
	}
	for i, r := range rule {
		if quote != 0 {
			switch {
			case esc:
				esc = false
			case r == '\\':
				esc = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return nil, &SyntaxError{Segment: rule, Message: fmt.Sprintf("unbalanced %q at offset %d", r, i)}
			}
		case Separator:
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, &SyntaxError{Segment: rule, Message: "unterminated string"}
	}
	if depth != 0 {
		return nil, &SyntaxError{Segment: rule, Message: "unbalanced brackets"}
	}
	flush(len(rule))
	return parts, nil
}

// ParseSegment parses a single `name` or `name(args)` segment.
func ParseSegment(segment string) (Segment, error) {
	raw := strings.TrimSpace(segment)
	m := segmentPattern.FindStringSubmatch(raw)
	if m == nil {
		return Segment{}, &SyntaxError{Segment: raw, Message: "expected name or name(args)"}
	}
	seg := Segment{Raw: raw, Name: m[1]}
	if strings.TrimSpace(m[2]) == "" {
		return seg, nil
	}
	args, err := ParseArgs(m[2])
	if err != nil {
		return Segment{}, &SyntaxError{Segment: raw, Message: "invalid arguments", Err: err}
	}
	seg.Args = args
	return seg, nil
}

// ParseArgs reads src as the elements of a list literal. Only literals
// are accepted: numbers (optionally negated), strings, booleans, null,
// lists and structs with plain labels. Anything else, such as a
// reference, operator, call or comprehension, is rejected before
// evaluation.
//
// Single-quoted strings are text, not bytes. Inside them a backslash
// escapes only a quote or another backslash and is kept as is before any
// other character, so '^\d+$' reads as the pattern ^\d+$.
func ParseArgs(src string) ([]any, error) {
	text, err := requoteSingle(src)
	if err != nil {
		return nil, err
	}
	expr, err := parser.ParseExpr("args", "["+text+"]")
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := checkLiteral(expr); err != nil {
		return nil, err
	}
	v := cuecontext.New().BuildExpr(expr)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("arguments must be concrete literals: %w", err)
	}
	decoded, err := decode(v)
	if err != nil {
		return nil, err
	}
	list, ok := decoded.([]any)
	if !ok {
		return nil, fmt.Errorf("arguments did not evaluate to a list")
	}
	return list, nil
}

// checkLiteral walks expr and fails on the first node that is not part of
// a literal value.
func checkLiteral(expr ast.Expr) error {
	switch x := expr.(type) {
	case *ast.BasicLit:
		switch x.Kind {
		case token.INT, token.FLOAT, token.STRING, token.NULL, token.TRUE, token.FALSE:
			return nil
		}
		return fmt.Errorf("unsupported literal %s", x.Value)
	case *ast.UnaryExpr:
		lit, ok := x.X.(*ast.BasicLit)
		if x.Op == token.SUB && ok && (lit.Kind == token.INT || lit.Kind == token.FLOAT) {
			return nil
		}
		return fmt.Errorf("operator %s is not allowed in arguments", x.Op)
	case *ast.ListLit:
		for _, elt := range x.Elts {
			if err := checkLiteral(elt); err != nil {
				return err
			}
		}
		return nil
	case *ast.StructLit:
		for _, decl := range x.Elts {
			f, ok := decl.(*ast.Field)
			if !ok {
				return fmt.Errorf("struct arguments may only contain fields")
			}
			if err := checkLabel(f); err != nil {
				return err
			}
			if err := checkLiteral(f.Value); err != nil {
				return err
			}
		}
		return nil
	case *ast.Ident:
		return fmt.Errorf("reference %s is not a literal", x.Name)
	case *ast.BinaryExpr:
		return fmt.Errorf("operator %s is not allowed in arguments", x.Op)
	case *ast.CallExpr:
		return fmt.Errorf("calls are not allowed in arguments")
	default:
		return fmt.Errorf("%T is not a literal", expr)
	}
}

func checkLabel(f *ast.Field) error {
	if f.Constraint != token.ILLEGAL || len(f.Attrs) > 0 {
		return fmt.Errorf("field modifiers are not allowed in arguments")
	}
	switch l := f.Label.(type) {
	case *ast.Ident:
		if strings.HasPrefix(l.Name, "#") || strings.HasPrefix(l.Name, "_") {
			return fmt.Errorf("label %s is not a plain name", l.Name)
		}
		return nil
	case *ast.BasicLit:
		if l.Kind == token.STRING {
			return nil
		}
	}
	return fmt.Errorf("labels must be names or strings")
}

// requoteSingle rewrites single-quoted strings in src as double-quoted
// ones. Double-quoted strings are copied untouched.
func requoteSingle(src string) (string, error) {
	var b strings.Builder
	b.Grow(len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '"':
			j := i + 1
			for ; j < len(src) && src[j] != '"'; j++ {
				if src[j] == '\\' {
					j++
				}
			}
			if j >= len(src) {
				return "", fmt.Errorf("unterminated string")
			}
			b.WriteString(src[i : j+1])
			i = j
		case '\'':
			var text strings.Builder
			j := i + 1
			for ; j < len(src) && src[j] != '\''; j++ {
				if src[j] == '\\' && j+1 < len(src) && (src[j+1] == '\'' || src[j+1] == '\\') {
					j++
				}
				text.WriteByte(src[j])
			}
			if j >= len(src) {
				return "", fmt.Errorf("unterminated string")
			}
			b.WriteString(quote(text.String()))
			i = j
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// quote renders s as a double-quoted CUE string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func decode(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		out := []any{}
		for iter.Next() {
			item, err := decode(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := map[string]any{}
		for iter.Next() {
			item, err := decode(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported literal %v", v)
	}
}
