// Package analytics aggregates persisted grading results into class-wide
// statistics: per-question error rates and keyword frequencies for the
// dashboard word cloud.
package analytics

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-ego/gse"
	"gopkg.in/yaml.v3"
)

// ErrNoResults is returned when an aggregator is invoked with zero input
// results. It is distinct from a successful run that found nothing; callers
// translate it into a not-found response.
var ErrNoResults = errors.New("no analysis data")

// TermCount is one word-cloud entry. The JSON shape feeds d3-cloud directly.
type TermCount struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// topTerms bounds the word-cloud table.
const topTerms = 40

//go:embed stopwords.yaml
var stopwordsYAML []byte

// DefaultStopwords parses the embedded stop-word list.
func DefaultStopwords() ([]string, error) {
	var words []string
	if err := yaml.Unmarshal(stopwordsYAML, &words); err != nil {
		return nil, fmt.Errorf("parse stopword list: %w", err)
	}
	return words, nil
}

// Extractor tokenizes analysis narratives and counts term frequencies.
// The segmenter dictionary and stop-word set are loaded once and read-only
// afterwards, so a single Extractor is safe for concurrent use.
type Extractor struct {
	seg       gse.Segmenter
	stopwords map[string]struct{}
}

// NewExtractor loads the segmentation dictionary and indexes the given
// stop-word set.
func NewExtractor(stopwords []string) (*Extractor, error) {
	e := &Extractor{stopwords: make(map[string]struct{}, len(stopwords))}
	if err := e.seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("load segmentation dict: %w", err)
	}
	for _, w := range stopwords {
		e.stopwords[w] = struct{}{}
	}
	return e, nil
}

type analysisBlob struct {
	KnowledgeAnalysis string `json:"knowledgeAnalysis"`
}

// WordFrequencies extracts the knowledgeAnalysis narratives from the given
// result blobs and returns the top terms by descending count. Ties keep
// first-encountered order. Empty input is an ErrNoResults condition.
func (e *Extractor) WordFrequencies(blobs [][]byte) ([]TermCount, error) {
	if len(blobs) == 0 {
		return nil, ErrNoResults
	}

	var narratives []string
	for _, b := range blobs {
		var rec analysisBlob
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		if rec.KnowledgeAnalysis == "" {
			continue
		}
		narratives = append(narratives, rec.KnowledgeAnalysis)
	}

	counts := map[string]int{}
	var order []string
	for _, term := range e.seg.Cut(strings.Join(narratives, " "), true) {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if _, stop := e.stopwords[term]; stop {
			continue
		}
		if _, seen := counts[term]; !seen {
			order = append(order, term)
		}
		counts[term]++
	}

	table := make([]TermCount, 0, len(order))
	for _, term := range order {
		table = append(table, TermCount{Text: term, Value: counts[term]})
	}
	sort.SliceStable(table, func(i, j int) bool { return table[i].Value > table[j].Value })
	if len(table) > topTerms {
		table = table[:topTerms]
	}
	return table, nil
}
