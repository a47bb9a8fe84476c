package quiz

import (
	"bytes"
	"encoding/json"
)

// Question kinds as they appear in stored quiz documents. The generation
// collaborator emits SurveyJS-style element types; anything else grades as
// an exact-match "other" kind.
const (
	KindSingleChoice = "radiogroup"
	KindMultiChoice  = "checkbox"
	KindText         = "text"
)

// Definition is the canonical in-memory quiz structure. It is immutable once
// graded against; grading never mutates it.
type Definition struct {
	Title string `json:"title,omitempty"`
	Pages []Page `json:"pages"`
}

type Page struct {
	Name     string     `json:"name,omitempty"`
	Elements []Question `json:"elements"`
}

type Question struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Choices       []string `json:"choices,omitempty"`
	CorrectAnswer Answer   `json:"correctAnswer,omitempty"`
}

// Answer holds either a single string value (text, single-choice) or an
// ordered list of strings (multi-choice). The variant is fixed by the JSON
// shape it was decoded from.
type Answer struct {
	Value  string
	Values []string
	IsList bool
}

func StringAnswer(s string) Answer   { return Answer{Value: s} }
func ListAnswer(vs ...string) Answer { return Answer{Values: vs, IsList: true} }

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		vs := make([]string, 0, len(items))
		for _, it := range items {
			vs = append(vs, scalarString(bytes.TrimSpace(it)))
		}
		*a = Answer{Values: vs, IsList: true}
		return nil
	}
	*a = Answer{Value: scalarString(data)}
	return nil
}

// scalarString renders one JSON scalar as its answer string. Generated
// documents sometimes carry numbers or booleans where a string belongs;
// those decode to their literal text instead of failing the whole quiz.
func scalarString(data []byte) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsList {
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Value)
}

// Equal reports exact equality: same variant, same value, and for lists the
// same elements in the same order.
func (a Answer) Equal(b Answer) bool {
	if a.IsList != b.IsList {
		return false
	}
	if !a.IsList {
		return a.Value == b.Value
	}
	if len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return false
		}
	}
	return true
}

// Answers maps question name to the submitted value. Questions absent from
// the map are not graded.
type Answers map[string]Answer

// IncorrectQuestion captures one wrongly answered question for the analysis
// narrative and the dashboards. Options is null for text questions.
type IncorrectQuestion struct {
	Question      string   `json:"question"`
	UserAnswer    Answer   `json:"userAnswer"`
	CorrectAnswer Answer   `json:"correctAnswer"`
	Options       []string `json:"options"`
	Type          string   `json:"type"`
}

// Result is the outcome of grading one submission. Field names and the
// errorIndex encoding are a persistence compatibility surface: stored blobs
// are re-parsed by the aggregators and rendered by existing dashboards.
//
// Invariant: len(ErrorIndex) == TotalQuestions == CorrectCount + IncorrectCount,
// counting answered questions only.
type Result struct {
	TotalQuestions     int                 `json:"totalQuestions"`
	CorrectCount       int                 `json:"correctCount"`
	IncorrectCount     int                 `json:"incorrectCount"`
	IncorrectQuestions []IncorrectQuestion `json:"incorrectQuestions"`
	KnowledgeAnalysis  string              `json:"knowledgeAnalysis"`
	ErrorIndex         string              `json:"errorIndex"`
}
