package tools

import (
	"fmt"
	"math"
	"strings"
)

// ValidateArgs checks args against the subset of JSON Schema that tool
// definitions use: required properties, primitive types, integer-ness
// and numeric minimum. Unknown properties are ignored.
func ValidateArgs(schema map[string]any, args map[string]any) error {
	for _, name := range requiredNames(schema["required"]) {
		if v, ok := args[name]; !ok || v == nil {
			return fmt.Errorf("missing required argument %q", name)
		}
	}

	props, _ := schema["properties"].(map[string]any)
	for name, v := range args {
		prop, ok := props[name].(map[string]any)
		if !ok || v == nil {
			continue
		}
		if err := checkType(name, prop, v); err != nil {
			return err
		}
	}
	return nil
}

func requiredNames(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	return nil
}

func checkType(name string, prop map[string]any, v any) error {
	typ, _ := prop["type"].(string)
	switch typ {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("argument %q must be a string", name)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("argument %q must be a boolean", name)
		}
	case "integer":
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) {
			return fmt.Errorf("argument %q must be an integer", name)
		}
		return checkMinimum(name, prop, n)
	case "number":
		n, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("argument %q must be a number", name)
		}
		return checkMinimum(name, prop, n)
	}
	return nil
}

func checkMinimum(name string, prop map[string]any, n float64) error {
	floor, ok := toFloat(prop["minimum"])
	if ok && n < floor {
		return fmt.Errorf("argument %q must be >= %v, got %v", name, floor, n)
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// stringArg returns args[key] trimmed, or "" when absent.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// intArg returns args[key] as an int, or def when absent. Values
// outside the int32 range saturate.
func intArg(args map[string]any, key string, def int) int {
	n, ok := toFloat(args[key])
	if !ok {
		return def
	}
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int(n)
}

// boolArg returns args[key], or def when absent.
func boolArg(args map[string]any, key string, def bool) bool {
	if b, ok := args[key].(bool); ok {
		return b
	}
	return def
}
