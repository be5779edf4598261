package crossref

import (
	"strconv"
	"strings"

	"github.com/stwir/clean-bib-file/internal/model"
)

// work is the subset of a CrossRef work record the cleaner consumes. Titles
// and container titles arrive as arrays; issued dates as date-parts.
type work struct {
	DOI            string       `json:"DOI"`
	Type           string       `json:"type"`
	Title          []string     `json:"title"`
	Subtitle       []string     `json:"subtitle"`
	ContainerTitle []string     `json:"container-title"`
	Author         []workAuthor `json:"author"`
	Publisher      string       `json:"publisher"`
	Volume         string       `json:"volume"`
	Issue          string       `json:"issue"`
	Page           string       `json:"page"`
	Issued         workDate     `json:"issued"`
	Event          *workEvent   `json:"event,omitempty"`
}

type workAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type workDate struct {
	DateParts [][]int `json:"date-parts"`
}

type workEvent struct {
	Name string `json:"name"`
}

func (w work) toCandidate() model.MetadataCandidate {
	cand := model.MetadataCandidate{
		DOI:            strings.TrimSpace(w.DOI),
		Title:          first(w.Title),
		Subtitle:       first(w.Subtitle),
		ContainerTitle: first(w.ContainerTitle),
		Publisher:      strings.TrimSpace(w.Publisher),
		Volume:         strings.TrimSpace(w.Volume),
		Issue:          strings.TrimSpace(w.Issue),
		Pages:          strings.TrimSpace(w.Page),
		Type:           model.ParseCrossRefType(w.Type),
	}

	// Proceedings papers often carry the venue only on the event record.
	if cand.ContainerTitle == "" && w.Event != nil {
		cand.ContainerTitle = strings.TrimSpace(w.Event.Name)
	}

	for _, a := range w.Author {
		if strings.TrimSpace(a.Family) == "" {
			continue
		}
		cand.Authors = append(cand.Authors, model.Author{
			Family: strings.TrimSpace(a.Family),
			Given:  strings.TrimSpace(a.Given),
		})
	}

	if len(w.Issued.DateParts) > 0 && len(w.Issued.DateParts[0]) > 0 {
		dp := w.Issued.DateParts[0]
		if dp[0] > 0 {
			cand.Year = strconv.Itoa(dp[0])
		}
		if len(dp) > 1 && dp[1] >= 1 && dp[1] <= 12 {
			cand.Month = strconv.Itoa(dp[1])
		}
	}

	return cand
}

func first(ss []string) string {
	for _, s := range ss {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return ""
}
