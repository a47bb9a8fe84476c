package analytics

import (
	"encoding/json"
	"sort"
	"strconv"
)

// QuestionRate is the correctness rate for one position index. Question is
// the 1-based position rendered as a string, matching the dashboard payload.
type QuestionRate struct {
	Question    string  `json:"question"`
	CorrectRate float64 `json:"correctRate"`
}

// ErrorRateSummary aggregates many grading results for one quiz. It is
// derived data, recomputed on demand; persisted copies are caches only.
type ErrorRateSummary struct {
	ErrorRate          float64        `json:"error_rate"`
	QuestionErrorRates []QuestionRate `json:"question_error_rates"`
}

type gradingBlob struct {
	TotalQuestions int    `json:"totalQuestions"`
	IncorrectCount int    `json:"incorrectCount"`
	ErrorIndex     string `json:"errorIndex"`
}

// QuizErrorRates combines the error strings of many grading results into an
// overall error rate and per-position correctness rates.
//
// The overall rate divides the summed incorrect count by totalQuestions
// twice. That arithmetic is reproduced from the system of record; existing
// dashboards consume this scale (see DESIGN.md before changing it).
func QuizErrorRates(blobs [][]byte) (*ErrorRateSummary, error) {
	if len(blobs) == 0 {
		return nil, ErrNoResults
	}

	var (
		records   []gradingBlob
		maxTotal  int
		incorrect int
	)
	for _, b := range blobs {
		var rec gradingBlob
		if err := json.Unmarshal(b, &rec); err != nil {
			continue
		}
		records = append(records, rec)
		if rec.TotalQuestions > maxTotal {
			maxTotal = rec.TotalQuestions
		}
		incorrect += rec.IncorrectCount
	}
	if len(records) == 0 {
		return nil, ErrNoResults
	}

	summary := &ErrorRateSummary{QuestionErrorRates: []QuestionRate{}}
	if maxTotal > 0 {
		summary.ErrorRate = float64(incorrect) / float64(maxTotal) / float64(maxTotal)
	}

	// Count '1's per 1-based position across all error strings.
	errCounts := map[int]int{}
	for _, rec := range records {
		for i, c := range rec.ErrorIndex {
			if c == '1' {
				errCounts[i+1]++
			}
		}
	}

	positions := make([]int, 0, len(errCounts))
	for pos := range errCounts {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	n := float64(len(records))
	for _, pos := range positions {
		summary.QuestionErrorRates = append(summary.QuestionErrorRates, QuestionRate{
			Question:    strconv.Itoa(pos),
			CorrectRate: 1 - float64(errCounts[pos])/n,
		})
	}
	return summary, nil
}
