package validators

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/roach88/formtree/internal/form"
)

// Condition is one comparison such as ">=100" or "<>3".
type Condition struct {
	Op     string  `json:"op"`
	Amount float64 `json:"amount"`
}

var conditionRegexp = regexp.MustCompile(`^\s*(<=|>=|<>|!=|<|>|=)?\s*([0-9]*\.?[0-9]+)\s*$`)

// ParseCondition parses a comparison. A bare number means equality.
func ParseCondition(v any) (Condition, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	default:
		f, ok := form.ToFloat(v)
		if !ok {
			return Condition{}, fmt.Errorf("condition must be a number or a string, got %T", v)
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	m := conditionRegexp.FindStringSubmatch(s)
	if m == nil {
		return Condition{}, fmt.Errorf("invalid condition %q", s)
	}
	amount, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Condition{}, fmt.Errorf("invalid condition %q: %w", s, err)
	}
	op := m[1]
	if op == "" {
		op = "="
	}
	return Condition{Op: op, Amount: amount}, nil
}

// ParseConditions accepts one condition or a list of them.
func ParseConditions(v any) ([]Condition, error) {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no conditions")
	}
	out := make([]Condition, 0, len(items))
	for _, item := range items {
		c, err := ParseCondition(item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Match reports whether value satisfies the condition.
func (c Condition) Match(value float64) bool {
	switch c.Op {
	case "<>", "!=":
		return value != c.Amount
	case "=":
		return value == c.Amount
	case "<":
		return value < c.Amount
	case "<=":
		return value <= c.Amount
	case ">":
		return value > c.Amount
	case ">=":
		return value >= c.Amount
	}
	return false
}

func (c Condition) String() string {
	return c.Op + strconv.FormatFloat(c.Amount, 'f', -1, 64)
}

// MatchAll reports whether value satisfies every condition.
func MatchAll(value float64, conds []Condition) bool {
	for _, c := range conds {
		if !c.Match(value) {
			return false
		}
	}
	return true
}
