package quiz

import (
	"encoding/json"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// FallbackLoader returns the raw content of the fallback survey document,
// the legacy frontend file that embeds the current quiz as a JS literal.
type FallbackLoader func() (string, error)

// FileFallback loads the fallback document from disk.
func FileFallback(path string) FallbackLoader {
	return func() (string, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// Normalizer turns an externally sourced quiz document into a canonical
// Definition. It never returns an error: every failure path degrades to the
// built-in default quiz.
type Normalizer struct {
	loadFallback FallbackLoader
}

func NewNormalizer(load FallbackLoader) *Normalizer {
	return &Normalizer{loadFallback: load}
}

var markerRe = regexp.MustCompile(`(?s)export const json = (\{.+\});`)

// Normalize parses raw when present; otherwise it falls back to the embedded
// document, then to the built-in default. Stages: extract -> parse; on
// failure sanitize -> parse once more; on failure default. No open-ended
// repair loop.
func (n *Normalizer) Normalize(raw json.RawMessage) Definition {
	if len(raw) > 0 {
		var def Definition
		if err := json.Unmarshal(raw, &def); err == nil {
			return def
		}
		slog.Warn("stored quiz document unparseable, falling back")
	}
	if n.loadFallback == nil {
		return DefaultQuiz()
	}
	content, err := n.loadFallback()
	if err != nil {
		slog.Error("loading fallback quiz document failed", "error", err)
		return DefaultQuiz()
	}
	payload, ok := extractPayload(content)
	if !ok {
		slog.Warn("fallback document has no embedded quiz payload, using default")
		return DefaultQuiz()
	}
	var def Definition
	if err := json.Unmarshal([]byte(payload), &def); err == nil {
		return def
	}
	slog.Warn("fallback payload is not valid JSON, retrying after cleanup")
	if err := json.Unmarshal([]byte(sanitizeJSON(payload)), &def); err == nil {
		return def
	}
	slog.Warn("fallback payload unparseable after cleanup, using default")
	return DefaultQuiz()
}

func extractPayload(content string) (string, bool) {
	if m := markerRe.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	// Older documents lack the trailing terminator on its own line.
	content = strings.TrimSpace(content)
	const prefix = "export const json = "
	if strings.HasPrefix(content, prefix) && strings.HasSuffix(content, ";") {
		return strings.TrimSuffix(strings.TrimPrefix(content, prefix), ";"), true
	}
	return "", false
}

var (
	controlRe = regexp.MustCompile(`[\x00-\x1F]`)
	escapeRe  = regexp.MustCompile(`\\(.)`)
)

// sanitizeJSON applies a best-effort cleanup pass to a payload that failed
// to parse: strips stray control characters, doubles dangling escape
// sequences, and escapes unescaped quotes inside string literals.
func sanitizeJSON(s string) string {
	s = controlRe.ReplaceAllString(s, "")
	s = escapeRe.ReplaceAllStringFunc(s, func(m string) string {
		if len(m) == 2 && strings.ContainsRune(`"\/bfnrt`, rune(m[1])) {
			return m
		}
		return `\\` + m[1:]
	})
	return escapeInnerQuotes(s)
}

// escapeInnerQuotes walks the payload tracking string state. A quote inside
// a string literal closes it only when the next non-space rune is a JSON
// structural character; otherwise the quote is literal content and gets
// escaped.
func escapeInnerQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	inString := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			b.WriteRune(r)
			b.WriteRune(runes[i+1])
			i++
			continue
		}
		if r != '"' {
			b.WriteRune(r)
			continue
		}
		if !inString {
			inString = true
			b.WriteRune(r)
			continue
		}
		if closesString(runes[i+1:]) {
			inString = false
			b.WriteRune(r)
		} else {
			b.WriteString(`\"`)
		}
	}
	return b.String()
}

func closesString(rest []rune) bool {
	for _, r := range rest {
		switch r {
		case ' ', '\t':
			continue
		case ',', ':', '}', ']':
			return true
		default:
			return false
		}
	}
	return true
}

// DefaultQuiz is the built-in single-question substitute used when no quiz
// source can be read or parsed.
func DefaultQuiz() Definition {
	return Definition{
		Pages: []Page{{
			Elements: []Question{{
				Name:          "question1",
				Type:          KindSingleChoice,
				Title:         "默认问题1",
				Choices:       []string{"选项1", "选项2", "选项3"},
				CorrectAnswer: StringAnswer("选项1"),
			}},
		}},
	}
}
