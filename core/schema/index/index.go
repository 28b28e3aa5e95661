package index

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnparseable is returned by Parse when a statement does not follow the
// CREATE [UNIQUE] INDEX `name` ON `table` (...) [WHERE ...] form.
var ErrUnparseable = errors.New("unparseable index definition")

// The name follows the INDEX keyword and is quoted with backticks (or double quotes).
// No trailing \b: the closing quote is followed by whitespace, not a word character.
var nameRe = regexp.MustCompile("(?i)\\bINDEX\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?(?:`([^`]+)`|\"([^\"]+)\")")

var headRe = regexp.MustCompile("(?is)^\\s*CREATE\\s+(UNIQUE\\s+)?INDEX\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?(?:`([^`]+)`|\"([^\"]+)\")\\s+ON\\s+(?:`([^`]+)`|\"([^\"]+)\"|([A-Za-z_][A-Za-z0-9_]*))\\s*\\(")

var whereRe = regexp.MustCompile(`(?is)^\s*WHERE\s+(.+?)\s*;?\s*$`)

// Index is the structured form of an index statement.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Where   string
}

// Name extracts the index name token from a definition.
func Name(def string) (string, bool) {
	m := nameRe.FindStringSubmatch(def)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	if m[2] != "" {
		return m[2], true
	}
	return "", false
}

// Same reports whether two definitions name the same index. Definitions whose name
// cannot be extracted are never the same as anything.
func Same(a, b string) bool {
	an, aok := Name(a)
	bn, bok := Name(b)
	return aok && bok && an == bn
}

// Upsert merges desired into set by index name and reports whether the set changed.
//
// An index with the same name and different text is replaced in place; identical text
// leaves the set untouched; an unknown name is appended. When the desired name cannot be
// extracted the definition is treated as an opaque value and only appended if no entry
// has exactly the same text. The input slice is never modified.
func Upsert(set []string, desired string) ([]string, bool) {
	name, ok := Name(desired)
	if !ok {
		for _, existing := range set {
			if existing == desired {
				return set, false
			}
		}
		return appendCopy(set, desired), true
	}

	out := make([]string, 0, len(set)+1)
	changed, found := false, false
	for _, existing := range set {
		existingName, ok := Name(existing)
		if !ok || existingName != name {
			out = append(out, existing)
			continue
		}
		if found {
			// A second entry with the same name would break uniqueness; drop it.
			changed = true
			continue
		}
		found = true
		if existing != desired {
			out = append(out, desired)
			changed = true
		} else {
			out = append(out, existing)
		}
	}
	if !found {
		out = append(out, desired)
		changed = true
	}
	if !changed {
		return set, false
	}
	return out, true
}

// Parse decodes a definition into its structured form.
func Parse(def string) (Index, error) {
	loc := headRe.FindStringSubmatchIndex(def)
	if loc == nil {
		return Index{}, fmt.Errorf("%w: %q", ErrUnparseable, def)
	}
	group := func(i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return def[loc[2*i]:loc[2*i+1]]
	}

	idx := Index{
		Unique: group(1) != "",
		Name:   firstNonEmpty(group(2), group(3)),
		Table:  firstNonEmpty(group(4), group(5), group(6)),
	}

	open := loc[1] - 1
	closing := matchParen(def, open)
	if closing < 0 {
		return Index{}, fmt.Errorf("%w: unbalanced column list in %q", ErrUnparseable, def)
	}
	idx.Columns = splitColumns(def[open+1 : closing])
	if len(idx.Columns) == 0 {
		return Index{}, fmt.Errorf("%w: empty column list in %q", ErrUnparseable, def)
	}

	rest := def[closing+1:]
	if strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ";")) != "" {
		m := whereRe.FindStringSubmatch(rest)
		if m == nil {
			return Index{}, fmt.Errorf("%w: unexpected trailing clause in %q", ErrUnparseable, def)
		}
		idx.Where = m[1]
	}
	return idx, nil
}

// String renders the index in the canonical statement form used by the remote store.
func (i Index) String() string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if i.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX `")
	b.WriteString(i.Name)
	b.WriteString("` ON `")
	b.WriteString(i.Table)
	b.WriteString("` (")
	b.WriteString(strings.Join(i.Columns, ", "))
	b.WriteString(")")
	if i.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(i.Where)
	}
	return b.String()
}

// matchParen returns the position of the parenthesis closing the one at open, or -1.
// Quoted sections are skipped.
func matchParen(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '`', '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitColumns splits a column list on top-level commas.
func splitColumns(s string) []string {
	var cols []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '`', '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if col := strings.TrimSpace(s[start:i]); col != "" {
					cols = append(cols, col)
				}
				start = i + 1
			}
		}
	}
	if col := strings.TrimSpace(s[start:]); col != "" {
		cols = append(cols, col)
	}
	return cols
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func appendCopy(set []string, def string) []string {
	out := make([]string, 0, len(set)+1)
	out = append(out, set...)
	return append(out, def)
}
