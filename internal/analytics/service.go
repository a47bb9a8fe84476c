package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ResultSource is the read side of the persisted grading-result store. The
// aggregators fan in over a snapshot read; strict consistency across the
// batch is not required.
type ResultSource interface {
	AnalysisBlobsForQuiz(ctx context.Context, quizID int64) ([][]byte, error)
	QuizIDsForCourse(ctx context.Context, courseID int64) ([]int64, error)
}

// Service runs the aggregators against the persisted store.
type Service struct {
	src       ResultSource
	extractor *Extractor
}

func NewService(src ResultSource, extractor *Extractor) *Service {
	return &Service{src: src, extractor: extractor}
}

// QuizErrorRates aggregates all recorded results for one quiz.
func (s *Service) QuizErrorRates(ctx context.Context, quizID int64) (*ErrorRateSummary, error) {
	blobs, err := s.src.AnalysisBlobsForQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load results for quiz %d: %w", quizID, err)
	}
	return QuizErrorRates(blobs)
}

// WordCloud aggregates the knowledge-analysis narratives for one quiz.
func (s *Service) WordCloud(ctx context.Context, quizID int64) ([]TermCount, error) {
	blobs, err := s.src.AnalysisBlobsForQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load results for quiz %d: %w", quizID, err)
	}
	return s.extractor.WordFrequencies(blobs)
}

// CourseErrorRates computes one summary per quiz linked to the course
// through the homework relation. Quizzes with no recorded results are
// skipped, not fatal.
func (s *Service) CourseErrorRates(ctx context.Context, courseID int64) (map[int64]*ErrorRateSummary, error) {
	quizIDs, err := s.src.QuizIDsForCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load quizzes for course %d: %w", courseID, err)
	}
	if len(quizIDs) == 0 {
		return nil, ErrNoResults
	}

	out := make(map[int64]*ErrorRateSummary, len(quizIDs))
	for _, quizID := range quizIDs {
		summary, err := s.QuizErrorRates(ctx, quizID)
		switch {
		case err == nil:
			out[quizID] = summary
		case errors.Is(err, ErrNoResults):
			slog.Info("quiz has no recorded results, skipping", "quiz_id", quizID, "course_id", courseID)
		default:
			return nil, err
		}
	}
	return out, nil
}
