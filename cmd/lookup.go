package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stwir/clean-bib-file/internal/bibtex"
	"github.com/stwir/clean-bib-file/internal/merge"
	"github.com/stwir/clean-bib-file/internal/model"
	"github.com/stwir/clean-bib-file/internal/normalize"
)

var (
	lookupDOI    string
	lookupTitle  string
	lookupAuthor string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Fetch one work from CrossRef and print it as BibTeX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if lookupDOI == "" && lookupTitle == "" {
			return eris.New("either --doi or --title is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var cand *model.MetadataCandidate
		if lookupDOI != "" {
			cand, err = env.Client.WorkByDOI(ctx, lookupDOI)
			if err != nil {
				return eris.Wrap(err, "lookup by DOI")
			}
		} else {
			cands, err := env.Client.Search(ctx, lookupTitle, lookupAuthor)
			if err != nil {
				return eris.Wrap(err, "search")
			}
			if len(cands) == 0 {
				return eris.New("no works found")
			}
			cand = &cands[0]
		}

		entry := entryFromCandidate(cand)
		fmt.Fprint(cmd.OutOrStdout(), bibtex.FormatEntry(entry))
		return nil
	},
}

// entryFromCandidate builds a fresh BibTeX entry carrying everything the
// candidate knows, via the same merge rules the clean run uses.
func entryFromCandidate(cand *model.MetadataCandidate) *model.BibEntry {
	entry := &model.BibEntry{
		Key:     candidateKey(cand),
		Type:    cand.Type,
		RawType: bibTag(cand.Type),
	}
	merge.Apply(entry, model.MatchResult{Candidate: cand, Confidence: 1.0})
	return entry
}

func candidateKey(cand *model.MetadataCandidate) string {
	if cand.DOI != "" {
		key := normalize.DOI(cand.DOI)
		key = strings.NewReplacer("/", "-", ".", "-").Replace(key)
		return key
	}
	return "work"
}

func bibTag(t model.EntryType) string {
	switch t {
	case model.TypeArticle:
		return "article"
	case model.TypeInProceedings:
		return "inproceedings"
	case model.TypeBook:
		return "book"
	case model.TypeBookChapter:
		return "incollection"
	default:
		return "misc"
	}
}

func init() {
	lookupCmd.Flags().StringVar(&lookupDOI, "doi", "", "DOI to fetch")
	lookupCmd.Flags().StringVar(&lookupTitle, "title", "", "title to search for")
	lookupCmd.Flags().StringVar(&lookupAuthor, "author", "", "author family name to narrow the search")
	rootCmd.AddCommand(lookupCmd)
}
