// Package naming turns resource paths and declared names into deterministic
// identifiers for generated classes, methods, fields and parameters.
package naming

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/mark3labs/endpointgen/internal/config"
)

// Segments splits a URI template such as "/pets/{id}" into its non-empty
// segments: ["pets", "{id}"].
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsURIParam reports whether a segment is a URI template parameter ("{id}").
func IsURIParam(segment string) bool {
	return strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}

// Pascal converts a single segment or declared name to PascalCase, dropping
// URI template braces and any character that cannot appear in an identifier.
func Pascal(s string) string {
	s = strings.NewReplacer("{", " ", "}", " ").Replace(s)
	return upperFirst(strcase.ToCamel(s))
}

// Camel converts s to camelCase with the same sanitising rules as Pascal.
func Camel(s string) string {
	p := Pascal(s)
	if p == "" {
		return ""
	}
	return strings.ToLower(p[:1]) + p[1:]
}

// Resolve returns the canonical identifier of the resource at segments
// (root first). The configured NamingStrategy, if any, replaces the default
// algorithm. Resolve is pure: identical input always yields identical output.
func Resolve(segments []string, cfg config.GenerationConfig) string {
	segs := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	if cfg.NamingStrategy != nil {
		return cfg.NamingStrategy(segs)
	}

	selected := segs
	cut := false
	if d := cfg.ResourceDepthInClassNames; d > 0 && d < len(segs) {
		selected = segs[len(segs)-d:]
		cut = true
	}
	if cfg.ReverseOrderInClassNames {
		rev := make([]string, len(selected))
		for i, s := range selected {
			rev[len(selected)-1-i] = s
		}
		selected = rev
	}
	if cut && cfg.ResourceTopLevelInClassNames {
		selected = append([]string{segs[0]}, selected...)
	}

	var b strings.Builder
	for _, s := range selected {
		b.WriteString(Pascal(s))
	}
	return identifier(b.String(), "Root", "Resource")
}

// TypeName returns the canonical class name for a declared or derived type name.
func TypeName(name string) string {
	return identifier(Pascal(name), "", "Type")
}

// FieldName returns the member name for a declared property or parameter.
func FieldName(name string) string {
	n := Camel(name)
	if n == "" {
		return "value"
	}
	if n[0] >= '0' && n[0] <= '9' {
		return "field" + upperFirst(n)
	}
	return n
}

// MethodName derives a controller method name for verb on the resource at
// segments. object is the request or response type name used by the
// objects strategy; it may be empty.
func MethodName(verb string, segments []string, object string, cfg config.GenerationConfig) string {
	prefix := verbPrefix(verb)
	if cfg.MethodsNamingLogic == config.MethodsNamingObjects && object != "" {
		return prefix + Pascal(object)
	}
	var b strings.Builder
	b.WriteString(prefix)
	wrote := false
	for _, s := range segments {
		w := Pascal(s)
		if w == "" {
			continue
		}
		if IsURIParam(s) {
			b.WriteString("By")
		}
		b.WriteString(w)
		wrote = true
	}
	if !wrote {
		b.WriteString("Root")
	}
	return b.String()
}

func verbPrefix(verb string) string {
	switch v := strings.ToLower(strings.TrimSpace(verb)); v {
	case "post":
		return "create"
	case "put":
		return "update"
	case "":
		return "handle"
	default:
		return strcase.ToLowerCamel(v)
	}
}

func identifier(s, empty, digitPrefix string) string {
	if s == "" {
		return empty
	}
	if s[0] >= '0' && s[0] <= '9' {
		return digitPrefix + s
	}
	return s
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
