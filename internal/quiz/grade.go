package quiz

import (
	"context"
	"fmt"
	"strings"
)

// PerfectScoreAnalysis is the narrative used when every answered question is
// correct. The generation collaborator is not called in that case.
const PerfectScoreAnalysis = "恭喜！您回答了所有问题正确。"

// NarrativeFunc produces the knowledge-gap analysis for a graded submission.
// It may block on network I/O and may fail; the grader treats failure as
// non-fatal.
type NarrativeFunc func(ctx context.Context, total, correct int, incorrect []IncorrectQuestion) (string, error)

// Grader scores submissions against a quiz definition.
type Grader struct {
	narrative NarrativeFunc
}

func NewGrader(narrative NarrativeFunc) *Grader {
	return &Grader{narrative: narrative}
}

// Grade walks pages and elements in document order and scores every question
// whose name appears in answers. Each answered question is assigned a 1-based
// position in encounter order; unanswered questions are skipped and consume
// no position. One '0' or '1' is appended to the error index per answered
// question, in position order.
//
// Grade always returns a fully populated Result: narrative failures degrade
// to an explanatory message instead of propagating.
func (g *Grader) Grade(ctx context.Context, def Definition, answers Answers) Result {
	var (
		incorrect  []IncorrectQuestion
		errorIndex strings.Builder
		total      int
		correct    int
	)

	for _, page := range def.Pages {
		for _, q := range page.Elements {
			if q.Name == "" {
				continue
			}
			userAnswer, answered := answers[q.Name]
			if !answered {
				continue
			}
			total++

			if isCorrect(q, userAnswer) {
				correct++
				errorIndex.WriteByte('0')
				continue
			}
			entry := IncorrectQuestion{
				Question:      q.Title,
				UserAnswer:    userAnswer,
				CorrectAnswer: q.CorrectAnswer,
				Type:          q.Type,
			}
			if q.Type != KindText {
				entry.Options = q.Choices
			}
			incorrect = append(incorrect, entry)
			errorIndex.WriteByte('1')
		}
	}

	res := Result{
		TotalQuestions:     total,
		CorrectCount:       correct,
		IncorrectCount:     len(incorrect),
		IncorrectQuestions: incorrect,
		ErrorIndex:         errorIndex.String(),
	}
	res.KnowledgeAnalysis = g.analysis(ctx, res)
	return res
}

func (g *Grader) analysis(ctx context.Context, res Result) string {
	if len(res.IncorrectQuestions) == 0 {
		return PerfectScoreAnalysis
	}
	if g.narrative == nil {
		return fmt.Sprintf("分析生成失败: %v，请稍后重试。", errNoNarrator)
	}
	text, err := g.narrative(ctx, res.TotalQuestions, res.CorrectCount, res.IncorrectQuestions)
	if err != nil {
		return fmt.Sprintf("分析生成失败: %v，请稍后重试。", err)
	}
	return text
}

var errNoNarrator = fmt.Errorf("no narrative generator configured")

// isCorrect applies the per-kind equality rule: fill-in-text compares
// case-insensitively after trimming both sides; everything else compares the
// submitted value exactly against the stored correct answer.
func isCorrect(q Question, user Answer) bool {
	if q.Type == KindText {
		return strings.ToLower(strings.TrimSpace(user.Value)) ==
			strings.ToLower(strings.TrimSpace(q.CorrectAnswer.Value))
	}
	return user.Equal(q.CorrectAnswer)
}
