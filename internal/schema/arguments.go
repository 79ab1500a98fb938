package schema

import (
	"fmt"
	"strings"

	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
)

var argModePrefixes = []string{"INOUT ", "OUT ", "IN ", "VARIADIC "}

// parseFunctionArguments parses the output of pg_get_function_arguments, e.g., "a integer, b integer DEFAULT 0".
//
// Argument types can contain spaces ("double precision") and names are optional, so the names are taken from
// proargnames rather than guessed from the text. proargnames and proargmodes also cover the output columns of
// RETURNS TABLE functions (mode "t"), which pg_get_function_arguments omits; those entries are skipped.
func parseFunctionArguments(args string, argNames, argModes []string) ([]FunctionArgument, error) {
	if strings.TrimSpace(args) == "" {
		return nil, nil
	}

	var names []string
	for i, name := range argNames {
		if i < len(argModes) && argModes[i] == "t" {
			continue
		}
		names = append(names, name)
	}

	var out []FunctionArgument
	for i, rawArg := range splitTopLevel(args, ',') {
		rawArg = strings.TrimSpace(rawArg)
		if rawArg == "" {
			return nil, fmt.Errorf("argument %d of %q is empty", i, args)
		}

		var arg FunctionArgument
		for _, prefix := range argModePrefixes {
			if strings.HasPrefix(rawArg, prefix) {
				arg.Mode = strings.TrimSpace(prefix)
				rawArg = strings.TrimPrefix(rawArg, prefix)
				break
			}
		}

		if idx := indexTopLevel(rawArg, " DEFAULT "); idx >= 0 {
			def := strings.TrimSpace(rawArg[idx+len(" DEFAULT "):])
			arg.Default = &def
			rawArg = rawArg[:idx]
		}

		if i < len(names) && names[i] != "" {
			name := names[i]
			var found bool
			for _, prefix := range []string{pgidentifier.QuoteIdentifier(name) + " ", pgidentifier.ForceQuoteIdentifier(name) + " "} {
				if strings.HasPrefix(rawArg, prefix) {
					rawArg = strings.TrimPrefix(rawArg, prefix)
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("argument %d (%q) does not start with its name %q", i, rawArg, name)
			}
			arg.Name = name
		}

		arg.Type = strings.TrimSpace(rawArg)
		out = append(out, arg)
	}
	return out, nil
}

// splitTopLevel splits s on sep, ignoring separators nested in parentheses, brackets or quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	start := 0
	walkTopLevel(s, func(i int) bool {
		if s[i] == sep {
			parts = append(parts, s[start:i])
			start = i + 1
		}
		return true
	})
	return append(parts, s[start:])
}

// indexTopLevel returns the index of the first occurrence of substr that is not nested in parentheses, brackets or
// quotes, or -1.
func indexTopLevel(s, substr string) int {
	found := -1
	walkTopLevel(s, func(i int) bool {
		if strings.HasPrefix(s[i:], substr) {
			found = i
			return false
		}
		return true
	})
	return found
}

// walkTopLevel calls fn with the index of every byte of s at nesting depth zero, outside of quoted literals and
// identifiers. It stops when fn returns false.
func walkTopLevel(s string, fn func(i int) bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				// A doubled quote is an escaped quote
				if i+1 < len(s) && s[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			continue
		case '(', '[':
			depth++
			continue
		case ')', ']':
			depth--
			continue
		}
		if depth == 0 && !fn(i) {
			return
		}
	}
}
