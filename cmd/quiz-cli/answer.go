package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stemsi/exstem-player/internal/model"
)

var errEmptyAnswer = errors.New("answer is empty")

// parseAnswer turns what the user typed into the stored answer shape for q.
// Options are numbered from 1 on screen; blanks are written as "1=text;2=text".
func parseAnswer(q model.Question, input string) (model.Answer, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errEmptyAnswer
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		return parseOption(input, len(q.Options))
	case model.QuestionTypeTrueFalse:
		switch strings.ToLower(input) {
		case "t", "true", "1":
			return model.OptionAnswer(0), nil
		case "f", "false", "2":
			return model.OptionAnswer(1), nil
		}
		return nil, fmt.Errorf("answer true or false")
	case model.QuestionTypeFillInBlank:
		return parseBlanks(input, q.Blanks)
	default:
		return model.TextAnswer(input), nil
	}
}

func parseOption(input string, options int) (model.Answer, error) {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || (options > 0 && n > options) {
		return nil, fmt.Errorf("choose an option between 1 and %d", options)
	}
	return model.OptionAnswer(n - 1), nil
}

func parseBlanks(input string, blanks int) (model.Answer, error) {
	values := make(map[int]string)
	for _, part := range strings.Split(input, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, text, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("write blanks as 1=text;2=text")
		}
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || n < 1 || (blanks > 0 && n > blanks) {
			return nil, fmt.Errorf("blank %q is out of range", idx)
		}
		values[n-1] = strings.TrimSpace(text)
	}
	if len(values) == 0 {
		return nil, errEmptyAnswer
	}
	return model.BlankAnswers(values), nil
}

// formatAnswer renders a stored answer for display.
func formatAnswer(q model.Question, a model.Answer) string {
	if model.AnswerIsEmpty(a) {
		return "(not answered)"
	}
	switch q.Type {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeTrueFalse:
		n, err := strconv.Atoi(string(a))
		if err != nil {
			return string(a)
		}
		if q.Type == model.QuestionTypeTrueFalse {
			if n == 0 {
				return "true"
			}
			return "false"
		}
		if n >= 0 && n < len(q.Options) {
			return fmt.Sprintf("%d. %s", n+1, q.Options[n])
		}
	}
	return string(a)
}
