package fieldgen

import (
	"fmt"
	"regexp"
	"strconv"

	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

// seqToken matches "{seq:<N>d}" — spec.md §4.A's zero-padded monotonic
// counter token.
var seqToken = regexp.MustCompile(`\{seq:(\d+)d\}`)

// nameToken matches any other "{name}" token, substituted from the
// record assembled so far.
var nameToken = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// renderTemplate expands a string{format} descriptor's format string.
// {seq:NNd} expands to the zero-padded decimal counter; any other
// {name} token is replaced by the current record's bound field of that
// name, failing with ConfigError if unbound. A format with no tokens at
// all is a string{initial_value} constant and is returned unchanged.
func renderTemplate(format string, entity string, seq int64, rec *model.Record) (string, error) {
	out := seqToken.ReplaceAllStringFunc(format, func(tok string) string {
		m := seqToken.FindStringSubmatch(tok)
		width, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%0*d", width, seq)
	})

	var firstErr error
	out = nameToken.ReplaceAllStringFunc(out, func(tok string) string {
		if firstErr != nil {
			return tok
		}
		name := nameToken.FindStringSubmatch(tok)[1]
		v, ok := rec.Get(name)
		if !ok {
			firstErr = errkind.Newf(errkind.Config, entity, name, "template references unbound field %q", name)
			return tok
		}
		return v.AsString()
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// TemplateFields returns the distinct {name} tokens a string{format}
// descriptor references, excluding {seq:NNd}. Exported so
// internal/config can statically verify, at Init time, that every
// referenced name resolves to a field the entity actually declares —
// the same check renderTemplate otherwise only performs per record.
func TemplateFields(format string) []string {
	stripped := seqToken.ReplaceAllString(format, "")
	matches := nameToken.FindAllStringSubmatch(stripped, -1)
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
