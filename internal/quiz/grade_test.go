package quiz_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/studyloop/studyloop-backend/internal/quiz"
)

// fakeNarrator counts invocations and returns a canned narrative.
type fakeNarrator struct {
	calls int
	text  string
	err   error
}

func (f *fakeNarrator) generate(_ context.Context, total, correct int, incorrect []quiz.IncorrectQuestion) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func threePageQuiz() quiz.Definition {
	return quiz.Definition{Pages: []quiz.Page{
		{Elements: []quiz.Question{
			{Name: "q1", Type: quiz.KindSingleChoice, Title: "Q1", Choices: []string{"a", "b"}, CorrectAnswer: quiz.StringAnswer("a")},
			{Name: "q2", Type: quiz.KindText, Title: "Q2", CorrectAnswer: quiz.StringAnswer("Paris")},
		}},
		{Elements: []quiz.Question{
			{Name: "q3", Type: quiz.KindMultiChoice, Title: "Q3", Choices: []string{"x", "y", "z"}, CorrectAnswer: quiz.ListAnswer("x", "z")},
			{Name: "q4", Type: quiz.KindSingleChoice, Title: "Q4", Choices: []string{"c", "d"}, CorrectAnswer: quiz.StringAnswer("d")},
		}},
	}}
}

func TestGradeCountsAnsweredPositionsOnly(t *testing.T) {
	nar := &fakeNarrator{text: "analysis"}
	g := quiz.NewGrader(nar.generate)

	// q2 is skipped: only q1, q3, q4 consume positions.
	res := g.Grade(context.Background(), threePageQuiz(), quiz.Answers{
		"q1": quiz.StringAnswer("a"),
		"q3": quiz.ListAnswer("x", "z"),
		"q4": quiz.StringAnswer("c"),
	})

	if res.TotalQuestions != 3 {
		t.Fatalf("total = %d, want 3", res.TotalQuestions)
	}
	if res.ErrorIndex != "001" {
		t.Fatalf("errorIndex = %q, want %q", res.ErrorIndex, "001")
	}
	if res.CorrectCount != 2 || res.IncorrectCount != 1 {
		t.Fatalf("correct/incorrect = %d/%d, want 2/1", res.CorrectCount, res.IncorrectCount)
	}
	if len(res.ErrorIndex) != res.TotalQuestions {
		t.Fatalf("len(errorIndex)=%d != totalQuestions=%d", len(res.ErrorIndex), res.TotalQuestions)
	}
}

func TestGradeTextIsTrimmedCaseInsensitive(t *testing.T) {
	g := quiz.NewGrader((&fakeNarrator{text: "n"}).generate)
	def := quiz.Definition{Pages: []quiz.Page{{Elements: []quiz.Question{
		{Name: "q1", Type: quiz.KindText, Title: "Capital", CorrectAnswer: quiz.StringAnswer("Paris")},
	}}}}

	res := g.Grade(context.Background(), def, quiz.Answers{"q1": quiz.StringAnswer(" paris  ")})
	if res.IncorrectCount != 0 {
		t.Fatalf("expected ' paris  ' to be correct, got errorIndex %q", res.ErrorIndex)
	}

	res = g.Grade(context.Background(), def, quiz.Answers{"q1": quiz.StringAnswer("Pariss")})
	if res.IncorrectCount != 1 {
		t.Fatalf("expected 'Pariss' to be incorrect")
	}
}

func TestGradeEmptyTextAnswerStillCompared(t *testing.T) {
	g := quiz.NewGrader((&fakeNarrator{text: "n"}).generate)
	def := quiz.Definition{Pages: []quiz.Page{{Elements: []quiz.Question{
		{Name: "q1", Type: quiz.KindText, Title: "Blank", CorrectAnswer: quiz.StringAnswer("   ")},
	}}}}

	// Empty submission trims equal to an all-whitespace correct answer.
	res := g.Grade(context.Background(), def, quiz.Answers{"q1": quiz.StringAnswer("")})
	if res.IncorrectCount != 0 {
		t.Fatalf("empty trimmed answer should match whitespace-only key")
	}
}

func TestGradePerfectScoreSkipsNarrator(t *testing.T) {
	nar := &fakeNarrator{text: "should never appear"}
	g := quiz.NewGrader(nar.generate)

	res := g.Grade(context.Background(), threePageQuiz(), quiz.Answers{
		"q1": quiz.StringAnswer("a"),
		"q2": quiz.StringAnswer("paris"),
	})
	if res.IncorrectCount != 0 {
		t.Fatalf("expected perfect score, got %d incorrect", res.IncorrectCount)
	}
	if res.KnowledgeAnalysis != quiz.PerfectScoreAnalysis {
		t.Fatalf("analysis = %q, want congratulatory constant", res.KnowledgeAnalysis)
	}
	if nar.calls != 0 {
		t.Fatalf("narrator called %d times on perfect score, want 0", nar.calls)
	}
}

func TestGradeEmptyAnswers(t *testing.T) {
	nar := &fakeNarrator{text: "n"}
	g := quiz.NewGrader(nar.generate)

	res := g.Grade(context.Background(), threePageQuiz(), quiz.Answers{})
	if res.TotalQuestions != 0 || res.ErrorIndex != "" {
		t.Fatalf("empty answers: total=%d errorIndex=%q", res.TotalQuestions, res.ErrorIndex)
	}
	if res.KnowledgeAnalysis != quiz.PerfectScoreAnalysis {
		t.Fatalf("empty answers should take the empty-incorrect-list path")
	}
	if nar.calls != 0 {
		t.Fatalf("narrator called on empty submission")
	}
}

func TestGradeNarratorFailureDegrades(t *testing.T) {
	nar := &fakeNarrator{err: errors.New("model unavailable")}
	g := quiz.NewGrader(nar.generate)

	res := g.Grade(context.Background(), threePageQuiz(), quiz.Answers{
		"q1": quiz.StringAnswer("b"), // wrong
	})
	if res.IncorrectCount != 1 {
		t.Fatalf("expected one incorrect question")
	}
	if !strings.Contains(res.KnowledgeAnalysis, "model unavailable") {
		t.Fatalf("degraded narrative should embed the error, got %q", res.KnowledgeAnalysis)
	}
	if res.ErrorIndex != "1" {
		t.Fatalf("grading must still complete: errorIndex = %q", res.ErrorIndex)
	}
}

func TestGradeIncorrectEntryShape(t *testing.T) {
	g := quiz.NewGrader((&fakeNarrator{text: "n"}).generate)

	res := g.Grade(context.Background(), threePageQuiz(), quiz.Answers{
		"q2": quiz.StringAnswer("London"),
		"q4": quiz.StringAnswer("c"),
	})
	if len(res.IncorrectQuestions) != 2 {
		t.Fatalf("expected 2 incorrect entries, got %d", len(res.IncorrectQuestions))
	}
	text := res.IncorrectQuestions[0]
	if text.Options != nil {
		t.Fatalf("text question must carry no options, got %v", text.Options)
	}
	choice := res.IncorrectQuestions[1]
	if len(choice.Options) != 2 {
		t.Fatalf("choice question should carry its choice list, got %v", choice.Options)
	}
	if choice.UserAnswer.Value != "c" || choice.CorrectAnswer.Value != "d" {
		t.Fatalf("entry = %+v", choice)
	}
}

func TestResultRoundTrip(t *testing.T) {
	g := quiz.NewGrader((&fakeNarrator{text: "知识点分析"}).generate)
	res := g.Grade(context.Background(), threePageQuiz(), quiz.Answers{
		"q1": quiz.StringAnswer("b"),
		"q2": quiz.StringAnswer("paris"),
		"q3": quiz.ListAnswer("x"),
	})

	blob, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back quiz.Result
	if err := json.Unmarshal(blob, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.TotalQuestions != res.TotalQuestions ||
		back.CorrectCount != res.CorrectCount ||
		back.IncorrectCount != res.IncorrectCount ||
		back.ErrorIndex != res.ErrorIndex {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, res)
	}
}
