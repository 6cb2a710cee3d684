package game

import (
	"fmt"
	"strings"

	"quiz-room-service/internal/constants"
	"quiz-room-service/internal/models"

	"github.com/samber/lo"
)

var knownQuestionTypes = []string{
	constants.QuestionTypeSingle,
	constants.QuestionTypeMultiple,
	constants.QuestionTypeOrder,
	constants.QuestionTypeFill,
}

// ValidateQuestions checks a host-supplied question set before a game starts.
// Returned errors wrap ErrInvalidQuestions.
func ValidateQuestions(questions []models.Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuestions)
	}
	for i, q := range questions {
		if err := validateQuestion(q); err != nil {
			return fmt.Errorf("%w: question %d: %s", ErrInvalidQuestions, i+1, err)
		}
	}
	return nil
}

// NormalizeQuestions fills in the implicit single type.
func NormalizeQuestions(questions []models.Question) []models.Question {
	return lo.Map(questions, func(q models.Question, _ int) models.Question {
		q.Type = questionType(q)
		return q
	})
}

func validateQuestion(q models.Question) error {
	qt := questionType(q)
	if !lo.Contains(knownQuestionTypes, qt) {
		return fmt.Errorf("unknown type %q", q.Type)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("text is empty")
	}

	switch qt {
	case constants.QuestionTypeSingle, constants.QuestionTypeMultiple:
		if len(q.Answers) < 2 {
			return fmt.Errorf("needs at least 2 answers")
		}
		if len(correctIndices(q)) == 0 {
			return fmt.Errorf("no correct answer marked")
		}
	case constants.QuestionTypeOrder:
		if len(q.Answers) < 2 {
			return fmt.Errorf("needs at least 2 answers")
		}
		if !isPermutation(q.CorrectOrder, len(q.Answers)) {
			return fmt.Errorf("correctOrder must list every answer index exactly once")
		}
	case constants.QuestionTypeFill:
		if strings.TrimSpace(q.CorrectText) == "" {
			return fmt.Errorf("correctText is empty")
		}
	}
	return nil
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
