// Package bibtex reads and writes BibTeX files. Parsing is lossy only for
// well-formed entries, which are reformatted on output. Anything else
// (comments, preambles, @string macros, malformed entries) is carried through
// verbatim as a raw block so a run never drops input.
package bibtex

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/stwir/clean-bib-file/internal/model"
)

// Block is one segment of a .bib file: a parsed entry, or raw text passed
// through unchanged.
type Block struct {
	Entry *model.BibEntry
	Raw   string
}

// Library is an ordered sequence of blocks. Order is preserved from input to
// output.
type Library struct {
	Blocks []Block
}

// Entries returns the parsed entries in input order.
func (l *Library) Entries() []*model.BibEntry {
	var out []*model.BibEntry
	for _, b := range l.Blocks {
		if b.Entry != nil {
			out = append(out, b.Entry)
		}
	}
	return out
}

// Parse reads a complete .bib file.
func Parse(r io.Reader) (*Library, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "bibtex: read input")
	}
	return ParseString(string(data)), nil
}

// ParseString parses .bib content. It never fails: unparseable spans become
// raw blocks.
func ParseString(src string) *Library {
	lib := &Library{}
	pos := 0
	for pos < len(src) {
		at := strings.IndexByte(src[pos:], '@')
		if at < 0 {
			lib.appendRaw(src[pos:])
			break
		}
		if at > 0 {
			lib.appendRaw(src[pos : pos+at])
			pos += at
		}

		span, ok := entrySpan(src, pos)
		if !ok {
			// No balanced entry here; emit the rest verbatim.
			lib.appendRaw(src[pos:])
			break
		}

		if entry := parseEntry(src[pos:span]); entry != nil {
			lib.Blocks = append(lib.Blocks, Block{Entry: entry})
		} else {
			lib.appendRaw(src[pos:span])
		}
		pos = span
	}
	return lib
}

func (l *Library) appendRaw(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	l.Blocks = append(l.Blocks, Block{Raw: s})
}

// entrySpan finds the end of the @-block starting at pos by balanced-brace
// scanning. Returns the index just past the closing brace.
func entrySpan(src string, pos int) (int, bool) {
	open := strings.IndexByte(src[pos:], '{')
	if open < 0 {
		return 0, false
	}
	depth := 0
	for i := pos + open; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// parseEntry parses one "@type{key, field = value, ...}" span. Returns nil
// when the span is not a citation entry (comments, macros) or is structurally
// malformed (missing key), so the caller passes it through verbatim.
func parseEntry(span string) *model.BibEntry {
	rest := strings.TrimSpace(strings.TrimPrefix(span, "@"))
	open := strings.IndexByte(rest, '{')
	if open < 0 {
		return nil
	}
	rawType := strings.TrimSpace(rest[:open])
	switch strings.ToLower(rawType) {
	case "", "comment", "string", "preamble":
		return nil
	}

	body := rest[open+1 : len(rest)-1] // inside the outer braces

	comma := strings.IndexByte(body, ',')
	if comma < 0 {
		return nil
	}
	key := strings.TrimSpace(body[:comma])
	if key == "" || strings.ContainsAny(key, "={} \t\n") {
		return nil
	}

	fields, ok := parseFields(body[comma+1:])
	if !ok {
		return nil
	}

	return &model.BibEntry{
		Key:     key,
		Type:    model.ParseBibType(rawType),
		RawType: rawType,
		Fields:  fields,
	}
}

func parseFields(body string) ([]model.Field, bool) {
	var fields []model.Field
	pos := 0
	for {
		// Skip separators.
		for pos < len(body) && (isSpace(body[pos]) || body[pos] == ',') {
			pos++
		}
		if pos >= len(body) {
			return fields, true
		}

		eq := strings.IndexByte(body[pos:], '=')
		if eq < 0 {
			return nil, false
		}
		name := strings.TrimSpace(body[pos : pos+eq])
		if name == "" || strings.ContainsAny(name, "{}\",") {
			return nil, false
		}
		pos += eq + 1

		value, next, ok := parseValue(body, pos)
		if !ok {
			return nil, false
		}
		fields = append(fields, model.Field{Name: name, Value: value})
		pos = next
	}
}

// parseValue reads one field value starting at pos: a braced group, a quoted
// string, or a bare token (numbers, macro names).
func parseValue(body string, pos int) (string, int, bool) {
	for pos < len(body) && isSpace(body[pos]) {
		pos++
	}
	if pos >= len(body) {
		return "", 0, false
	}

	switch body[pos] {
	case '{':
		depth := 0
		for i := pos; i < len(body); i++ {
			switch body[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return strings.TrimSpace(body[pos+1 : i]), i + 1, true
				}
			}
		}
		return "", 0, false
	case '"':
		for i := pos + 1; i < len(body); i++ {
			if body[i] == '"' && body[i-1] != '\\' {
				return strings.TrimSpace(body[pos+1 : i]), i + 1, true
			}
		}
		return "", 0, false
	default:
		i := pos
		for i < len(body) && body[i] != ',' {
			i++
		}
		v := strings.TrimSpace(body[pos:i])
		if v == "" {
			return "", 0, false
		}
		return v, i, true
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// FormatEntry renders an entry in the canonical layout, preserving the
// original type tag and field order.
func FormatEntry(e *model.BibEntry) string {
	var b strings.Builder
	typ := e.RawType
	if typ == "" {
		typ = string(e.Type)
	}
	b.WriteString("@")
	b.WriteString(typ)
	b.WriteString("{")
	b.WriteString(e.Key)
	b.WriteString(",\n")
	for _, f := range e.Fields {
		b.WriteString("  ")
		b.WriteString(f.Name)
		b.WriteString(" = {")
		b.WriteString(f.Value)
		b.WriteString("},\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// Write serializes the library, keeping block order and separating blocks
// with a blank line.
func Write(w io.Writer, lib *Library) error {
	for i, blk := range lib.Blocks {
		var s string
		if blk.Entry != nil {
			s = FormatEntry(blk.Entry)
		} else {
			s = strings.TrimSpace(blk.Raw) + "\n"
		}
		if i > 0 {
			s = "\n" + s
		}
		if _, err := io.WriteString(w, s); err != nil {
			return eris.Wrap(err, "bibtex: write output")
		}
	}
	return nil
}
