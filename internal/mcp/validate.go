package mcp

import (
	"fmt"
	"strings"
)

// fieldError is one "path: message" entry in a validation failure.
type fieldError struct {
	Path    string
	Message string
}

// argErrors accumulates fieldErrors across a handler's argument checks.
// A zero value is ready to use.
type argErrors []fieldError

func (e *argErrors) add(path, format string, args ...interface{}) {
	*e = append(*e, fieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (e argErrors) ok() bool { return len(e) == 0 }

// render joins every accumulated error into the newline-separated
// "path: message" text the tool-call contract requires for isError responses.
func (e argErrors) render() string {
	lines := make([]string, len(e))
	for i, fe := range e {
		lines[i] = fmt.Sprintf("%s: %s", fe.Path, fe.Message)
	}
	return strings.Join(lines, "\n")
}

// requireString reads a required, non-empty string field from args.
func requireString(args map[string]interface{}, path string, errs *argErrors) string {
	v, ok := args[path]
	if !ok {
		errs.add(path, "is required")
		return ""
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		errs.add(path, "must be a non-empty string")
		return ""
	}
	return s
}

// optionalString reads an optional string field, returning def if absent.
func optionalString(args map[string]interface{}, path, def string) string {
	v, ok := args[path]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// requireStringSlice reads a required, non-empty array-of-strings field.
func requireStringSlice(args map[string]interface{}, path string, errs *argErrors) []string {
	v, ok := args[path]
	if !ok {
		errs.add(path, "is required")
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok || len(raw) == 0 {
		errs.add(path, "must be a non-empty array of strings")
		return nil
	}
	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			errs.add(fmt.Sprintf("%s[%d]", path, i), "must be a string")
			continue
		}
		out = append(out, s)
	}
	return out
}

// optionalStringSlice reads an optional array-of-strings field.
func optionalStringSlice(args map[string]interface{}, path string) []string {
	v, ok := args[path]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// optionalFloat reads an optional numeric field (JSON numbers decode as
// float64), returning def if absent or of the wrong type.
func optionalFloat(args map[string]interface{}, path string, def float64) float64 {
	v, ok := args[path]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return f
}

// optionalInt reads an optional integer-valued numeric field.
func optionalInt(args map[string]interface{}, path string, def int) int {
	v, ok := args[path]
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return int(f)
}

// optionalStringMap reads an optional object-of-strings field, e.g. entity
// properties supplied as {"key": "value"}.
func optionalStringMap(args map[string]interface{}, path string) map[string]string {
	v, ok := args[path]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
