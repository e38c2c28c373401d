package effect

import "fmt"

// Param returns params[name] formatted as a string, or "" when absent.
// Registries use it to build key segments from request parameters.
func Param(params map[string]any, name string) string {
	v, ok := params[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Field returns the named field of a map-shaped response, formatted as a
// string, or "" when the response is not a map or lacks the field.
func Field(response any, name string) string {
	m, ok := response.(map[string]any)
	if !ok {
		return ""
	}
	return Param(m, name)
}
