// Package preview renders WhatsApp message templates for display before they
// are sent. Placeholders are written {{name}} or, as WhatsApp numbers them,
// {{1}}; whitespace inside the braces is ignored.
package preview

import (
	"regexp"
	"strings"
)

var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// Render replaces every placeholder that has a value. Placeholders without a
// value stay in the output exactly as written.
func Render(template string, values map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRE.FindStringSubmatch(match)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return match
	})
}

// Placeholders lists placeholder names in order of first appearance.
func Placeholders(template string) []string {
	matches := placeholderRE.FindAllStringSubmatch(template, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// Missing lists the placeholders of template that values does not cover.
func Missing(template string, values map[string]string) []string {
	var out []string
	for _, name := range Placeholders(template) {
		if v, ok := values[name]; !ok || strings.TrimSpace(v) == "" {
			out = append(out, name)
		}
	}
	return out
}

// Sample renders template with each placeholder shown as [name].
func Sample(template string) string {
	names := Placeholders(template)
	values := make(map[string]string, len(names))
	for _, name := range names {
		values[name] = "[" + name + "]"
	}
	return Render(template, values)
}
