package registry

import (
	"fmt"
	"strings"
)

// Rule is a declarative predicate over a single named argument. Apply
// returns an empty string when the argument is acceptable, otherwise a
// human-readable message that becomes the envelope error verbatim.
type Rule struct {
	Param string
	check func(value any, present bool) string
}

// Apply evaluates the rule against the argument map.
func (r Rule) Apply(args map[string]any) string {
	value, present := args[r.Param]
	return r.check(value, present)
}

// RequiredString demands a present, non-empty string argument.
func RequiredString(param string) Rule {
	return Rule{
		Param: param,
		check: func(value any, present bool) string {
			s, ok := value.(string)
			if !present || !ok || s == "" {
				return fmt.Sprintf("%s must be a non-empty string", param)
			}
			return ""
		},
	}
}

// OptionalString accepts an absent argument and type-checks a present one.
func OptionalString(param string) Rule {
	return Rule{
		Param: param,
		check: func(value any, present bool) string {
			if !present {
				return ""
			}
			if _, ok := value.(string); !ok {
				return fmt.Sprintf("%s must be a string", param)
			}
			return ""
		},
	}
}

// Enum accepts an absent argument; a present one must be a string drawn
// from the allowed set.
func Enum(param string, allowed ...string) Rule {
	return Rule{
		Param: param,
		check: func(value any, present bool) string {
			if !present {
				return ""
			}
			if s, ok := value.(string); ok {
				for _, a := range allowed {
					if s == a {
						return ""
					}
				}
			}
			return fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))
		},
	}
}
