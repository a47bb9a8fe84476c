package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/studyloop/studyloop-backend/internal/quiz"
)

// Narrator turns grading outcomes into a human-readable knowledge-gap
// analysis. Calls are bounded by a timeout and retried with exponential
// backoff; the caller decides what to do when all attempts fail.
type Narrator struct {
	provider   Provider
	timeout    time.Duration
	maxRetries uint64
}

func NewNarrator(p Provider, timeout time.Duration) *Narrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Narrator{provider: p, timeout: timeout, maxRetries: 3}
}

// KnowledgeAnalysis satisfies quiz.NarrativeFunc.
func (n *Narrator) KnowledgeAnalysis(ctx context.Context, total, correct int, incorrect []quiz.IncorrectQuestion) (string, error) {
	prompt, err := analysisPrompt(total, correct, incorrect)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	var resp CompletionResponse
	op := func() error {
		var cerr error
		resp, cerr = n.provider.Complete(ctx, CompletionRequest{
			Messages:    []Message{{Role: "user", Content: prompt}},
			Temperature: 0.4,
		})
		return cerr
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		slog.Error("narrative generation failed", "error", err, "incorrect", len(incorrect))
		return "", fmt.Errorf("生成分析失败: %w", err)
	}
	slog.Info("knowledge analysis generated", "model", resp.Model, "tokens", resp.InputTokens+resp.OutputTokens)
	return resp.Content, nil
}

func analysisPrompt(total, correct int, incorrect []quiz.IncorrectQuestion) (string, error) {
	detail, err := json.MarshalIndent(incorrect, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal incorrect questions: %w", err)
	}
	return fmt.Sprintf(`
基于以下测验结果，分析用户的知识点掌握情况并提供改进建议。以“测试结果分析“作为题目

总题数: %d
正确答案: %d
错误答案: %d

以下是用户回答错误的题目:
%s

请提供:
1. 用户知识点不足的区域总结
2. 具体的改进建议
3. 错误答案中发现的任何模式

请使用markdown格式输出你的分析。
`, total, correct, len(incorrect), detail), nil
}
