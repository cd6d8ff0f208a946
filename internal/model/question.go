package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// QuestionType tags how a question is rendered and what shape its answer takes.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeLongAnswer     QuestionType = "long_answer"
	QuestionTypeFillInBlank    QuestionType = "fill_in_blank"
	QuestionTypeTrueFalse      QuestionType = "true_false"
)

// Question is a single quiz question as delivered to the player (no answer key).
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
	Blanks  int          `json:"blanks,omitempty"`
	Points  float64      `json:"points,omitempty"`
}

// Answer values are kept as raw JSON. Their shape depends on the question type:
//   - multiple_choice, true_false: option index (number)
//   - short_answer, long_answer: free text (string)
//   - fill_in_blank: blank index -> text (object)
type Answer = json.RawMessage

// OptionAnswer encodes a selected option index.
func OptionAnswer(index int) Answer {
	return Answer(strconv.Itoa(index))
}

// TextAnswer encodes a free-text answer.
func TextAnswer(text string) Answer {
	b, _ := json.Marshal(text)
	return b
}

// BlankAnswers encodes fill-in-blank answers keyed by blank index.
func BlankAnswers(blanks map[int]string) Answer {
	b, _ := json.Marshal(blanks)
	return b
}

// AnswerIsEmpty reports whether a stored value counts as "not answered":
// null, a blank string, or an object or array holding only empty values.
// Values that are not valid JSON count as answered.
func AnswerIsEmpty(a Answer) bool {
	trimmed := bytes.TrimSpace(a)
	if len(trimmed) == 0 {
		return true
	}
	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return false
	}
	return valueIsEmpty(v)
}

func valueIsEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case map[string]interface{}:
		for _, e := range t {
			if !valueIsEmpty(e) {
				return false
			}
		}
		return true
	case []interface{}:
		for _, e := range t {
			if !valueIsEmpty(e) {
				return false
			}
		}
		return true
	}
	return false
}
