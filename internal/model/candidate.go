package model

import "strings"

// Author is one contributor name as CrossRef reports it.
type Author struct {
	Family string `json:"family"`
	Given  string `json:"given"`
}

// MetadataCandidate is one record returned by a metadata lookup. Produced
// transiently per lookup; never persisted beyond the cache payload.
type MetadataCandidate struct {
	DOI            string    `json:"doi,omitempty"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle,omitempty"`
	Authors        []Author  `json:"authors,omitempty"`
	ContainerTitle string    `json:"container_title,omitempty"`
	Publisher      string    `json:"publisher,omitempty"`
	Year           string    `json:"year,omitempty"`
	Month          string    `json:"month,omitempty"`
	Volume         string    `json:"volume,omitempty"`
	Issue          string    `json:"issue,omitempty"`
	Pages          string    `json:"pages,omitempty"`
	Type           EntryType `json:"type"`
}

// FieldCount returns the number of non-blank metadata fields. Used as the
// completeness tie-break between equally scored candidates.
func (c *MetadataCandidate) FieldCount() int {
	n := 0
	for _, v := range []string{
		c.DOI, c.Title, c.Subtitle, c.ContainerTitle, c.Publisher,
		c.Year, c.Month, c.Volume, c.Issue, c.Pages,
	} {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	if len(c.Authors) > 0 {
		n++
	}
	return n
}

// FullTitle returns the display form of the title, "Title: Subtitle" when a
// subtitle is present.
func (c *MetadataCandidate) FullTitle() string {
	t := strings.TrimSpace(c.Title)
	sub := strings.TrimSpace(c.Subtitle)
	if sub == "" {
		return t
	}
	return t + ": " + sub
}
