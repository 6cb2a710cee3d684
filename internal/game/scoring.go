package game

import (
	"encoding/json"
	"slices"
	"strings"

	"quiz-room-service/internal/constants"
	"quiz-room-service/internal/models"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Grade checks a submitted answer against q. An answer whose shape does not
// fit the question type is simply wrong.
func Grade(q models.Question, answer json.RawMessage) bool {
	switch questionType(q) {
	case constants.QuestionTypeSingle:
		var index int
		if err := json.Unmarshal(answer, &index); err != nil {
			return false
		}
		return index >= 0 && index < len(q.Answers) && q.Answers[index].Correct

	case constants.QuestionTypeMultiple:
		var indices []int
		if err := json.Unmarshal(answer, &indices); err != nil {
			return false
		}
		return sameSet(indices, correctIndices(q))

	case constants.QuestionTypeOrder:
		var sequence []int
		if err := json.Unmarshal(answer, &sequence); err != nil {
			return false
		}
		return len(q.CorrectOrder) > 0 && slices.Equal(sequence, q.CorrectOrder)

	case constants.QuestionTypeFill:
		var text string
		if err := json.Unmarshal(answer, &text); err != nil {
			return false
		}
		return normalizeText(text) == normalizeText(q.CorrectText)
	}
	return false
}

// Points is the flat reward for an answer. Time spent does not factor in.
func Points(isCorrect bool) int {
	return lo.Ternary(isCorrect, constants.PointsPerCorrectAnswer, 0)
}

func questionType(q models.Question) string {
	if q.Type == "" {
		return constants.QuestionTypeSingle
	}
	return q.Type
}

func correctIndices(q models.Question) []int {
	var out []int
	for i, a := range q.Answers {
		if a.Correct {
			out = append(out, i)
		}
	}
	return out
}

func sameSet(a, b []int) bool {
	a, b = lo.Uniq(a), lo.Uniq(b)
	if len(a) != len(b) {
		return false
	}
	return lo.Every(b, a)
}

func normalizeText(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}
