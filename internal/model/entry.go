package model

import "strings"

// EntryType classifies a bibliographic entry into the closed set of types the
// merge policy dispatches on.
type EntryType string

const (
	TypeArticle       EntryType = "article"
	TypeInProceedings EntryType = "inproceedings"
	TypeBook          EntryType = "book"
	TypeBookChapter   EntryType = "bookchapter"
	TypeOther         EntryType = "other"
)

// ParseBibType maps a raw BibTeX entry-type tag to an EntryType.
func ParseBibType(tag string) EntryType {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "article":
		return TypeArticle
	case "inproceedings", "conference":
		return TypeInProceedings
	case "book":
		return TypeBook
	case "incollection", "inbook":
		return TypeBookChapter
	default:
		return TypeOther
	}
}

// ParseCrossRefType maps a CrossRef work type to an EntryType.
func ParseCrossRefType(t string) EntryType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "journal-article":
		return TypeArticle
	case "proceedings-article":
		return TypeInProceedings
	case "book", "monograph", "edited-book", "reference-book":
		return TypeBook
	case "book-chapter", "book-section", "book-part":
		return TypeBookChapter
	default:
		return TypeOther
	}
}

// Field is a single key/value pair of a BibTeX entry. Order matters on output,
// so entries hold a slice of these rather than a map.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// BibEntry is one bibliographic record. Key is immutable: no component may
// rewrite it after parse.
type BibEntry struct {
	Key     string    `json:"key"`
	Type    EntryType `json:"type"`
	RawType string    `json:"raw_type"` // original BibTeX tag, preserved on output
	Fields  []Field   `json:"fields"`
}

// Get returns the value of the named field, or "" when absent. Field names are
// case-insensitive per BibTeX convention.
func (e *BibEntry) Get(name string) string {
	for _, f := range e.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether the named field holds a non-blank value.
func (e *BibEntry) Has(name string) bool {
	return strings.TrimSpace(e.Get(name)) != ""
}

// Set writes the named field in place, appending it when absent. Existing
// field order is preserved.
func (e *BibEntry) Set(name, value string) {
	for i, f := range e.Fields {
		if strings.EqualFold(f.Name, name) {
			e.Fields[i].Value = value
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: value})
}

// Clone returns a deep copy of the entry.
func (e *BibEntry) Clone() *BibEntry {
	c := *e
	c.Fields = make([]Field, len(e.Fields))
	copy(c.Fields, e.Fields)
	return &c
}

// Well-known BibTeX field names used by the merge policy.
const (
	FieldAuthor    = "author"
	FieldTitle     = "title"
	FieldJournal   = "journal"
	FieldBookTitle = "booktitle"
	FieldYear      = "year"
	FieldMonth     = "month"
	FieldVolume    = "volume"
	FieldNumber    = "number"
	FieldPages     = "pages"
	FieldPublisher = "publisher"
	FieldDOI       = "doi"
)
