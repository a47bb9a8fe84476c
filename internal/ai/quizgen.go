package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// GenOptions control quiz generation from uploaded course material.
type GenOptions struct {
	QuestionCount         int
	Difficulty            string // easy|medium|hard
	IncludeMultipleChoice bool
	IncludeFillInBlank    bool
	Notes                 string
}

// QuizGenerator produces a quiz document from source text. The output is an
// opaque JSON structure consumed by the normalizer; this boundary owns no
// schema guarantees beyond best effort.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, sourceText string, opts GenOptions) (json.RawMessage, error)
}

type quizGenerator struct {
	provider Provider
	timeout  time.Duration
}

func NewQuizGenerator(p Provider, timeout time.Duration) QuizGenerator {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &quizGenerator{provider: p, timeout: timeout}
}

var jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.+\\})\\s*```")

func (g *quizGenerator) GenerateQuiz(ctx context.Context, sourceText string, opts GenOptions) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: "user", Content: generationPrompt(sourceText, opts)}},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("quiz generation: %w", err)
	}

	payload := strings.TrimSpace(resp.Content)
	if m := jsonFenceRe.FindStringSubmatch(payload); m != nil {
		payload = m[1]
	}
	var probe map[string]any
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return nil, fmt.Errorf("quiz generation returned non-JSON content: %w", err)
	}
	validateQuizShape(payload)
	return json.RawMessage(payload), nil
}

// quizSchema is advisory: the normalizer stays tolerant, but a shape warning
// at generation time makes bad model output visible in the logs.
const quizSchema = `{
  "type": "object",
  "required": ["pages"],
  "properties": {
    "pages": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "elements": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "type", "title"],
              "properties": {
                "name":  {"type": "string"},
                "type":  {"type": "string"},
                "title": {"type": "string"},
                "choices": {"type": "array", "items": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

func validateQuizShape(payload string) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(quizSchema),
		gojsonschema.NewStringLoader(payload),
	)
	if err != nil {
		slog.Warn("quiz schema validation errored", "error", err)
		return
	}
	for _, issue := range result.Errors() {
		slog.Warn("generated quiz deviates from expected shape", "issue", issue.String())
	}
}

func generationPrompt(sourceText string, opts GenOptions) string {
	var kinds []string
	if opts.IncludeMultipleChoice {
		kinds = append(kinds, "单选题（type 为 radiogroup，包含 choices 数组）")
	}
	if opts.IncludeFillInBlank {
		kinds = append(kinds, "填空题（type 为 text）")
	}
	if len(kinds) == 0 {
		kinds = append(kinds, "单选题（type 为 radiogroup，包含 choices 数组）")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "根据以下学习材料生成 %d 道 %s 难度的测验题。\n", opts.QuestionCount, opts.Difficulty)
	fmt.Fprintf(&b, "题型: %s。\n", strings.Join(kinds, "、"))
	if opts.Notes != "" {
		fmt.Fprintf(&b, "出题要求: %s\n", opts.Notes)
	}
	b.WriteString(`
输出 SurveyJS 格式的 JSON，结构为 {"pages":[{"elements":[...]}]}。
每道题必须包含 name（唯一标识）、type、title、correctAnswer 字段。
只输出 JSON，不要输出任何其他说明文字。

学习材料:
`)
	b.WriteString(sourceText)
	return b.String()
}
