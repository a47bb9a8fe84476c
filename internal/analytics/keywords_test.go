package analytics_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/studyloop/studyloop-backend/internal/analytics"
)

func narrativeBlob(t *testing.T, text string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"knowledgeAnalysis": text})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func newExtractor(t *testing.T, stopwords []string) *analytics.Extractor {
	t.Helper()
	e, err := analytics.NewExtractor(stopwords)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return e
}

func TestWordFrequenciesEmptyInput(t *testing.T) {
	e := newExtractor(t, nil)
	if _, err := e.WordFrequencies(nil); !errors.Is(err, analytics.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestWordFrequenciesTieBreakIsFirstEncountered(t *testing.T) {
	e := newExtractor(t, nil)

	// 知识 and 薄弱 both occur five times; 知识 is encountered first.
	text := strings.Repeat("知识 薄弱 ", 5) + "建议 建议 建议"
	table, err := e.WordFrequencies([][]byte{narrativeBlob(t, text)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := map[string]int{}
	for i, tc := range table {
		idx[tc.Text] = i
	}
	for _, term := range []string{"知识", "薄弱", "建议"} {
		if _, ok := idx[term]; !ok {
			t.Fatalf("term %q missing from table %v", term, table)
		}
	}
	if !(idx["知识"] < idx["薄弱"] && idx["薄弱"] < idx["建议"]) {
		t.Fatalf("ordering wrong: %v", table)
	}
}

func TestWordFrequenciesDropsStopwords(t *testing.T) {
	e := newExtractor(t, []string{"建议"})

	table, err := e.WordFrequencies([][]byte{narrativeBlob(t, "建议 复习 函数 建议")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tc := range table {
		if tc.Text == "建议" {
			t.Fatalf("stop word survived: %v", table)
		}
	}
}

func TestWordFrequenciesSkipsEmptyNarrativesAndTruncates(t *testing.T) {
	e := newExtractor(t, nil)

	var blobs [][]byte
	blobs = append(blobs, narrativeBlob(t, "")) // skipped
	var b strings.Builder
	for i := 0; i < 60; i++ {
		// Distinct latin terms segment as-is and exercise the top-40 cut.
		for j := 0; j <= i%5; j++ {
			b.WriteString(" term")
			b.WriteByte(byte('a' + i%26))
			b.WriteString(string(rune('a' + i/26)))
		}
	}
	blobs = append(blobs, narrativeBlob(t, b.String()))

	table, err := e.WordFrequencies(blobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table) > 40 {
		t.Fatalf("table length %d exceeds top-40 cap", len(table))
	}
	for i := 1; i < len(table); i++ {
		if table[i].Value > table[i-1].Value {
			t.Fatalf("not sorted descending at %d: %v", i, table)
		}
	}
}
