package progression

import (
	"fmt"
	"math"

	"kwikly/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Band is the XP tier an attempt lands in.
type Band string

const (
	BandFull    Band = "full"
	BandPartial Band = "partial"
	BandNone    Band = "none"
)

const (
	// partialThreshold is the fraction of the passing score that still earns partial XP.
	partialThreshold = 0.3
	// partialShare is the fraction of the reward paid in the partial band.
	partialShare = 0.25
)

// Sheet is everything needed to score one attempt.
type Sheet struct {
	Questions    []domain.Question `validate:"unique=ID,dive"`
	Selected     map[int]string
	PassingScore int `validate:"min=0,max=100"`
	XPReward     int `validate:"min=0"`
}

// SheetFor builds a sheet from a quiz definition and the selected answers.
func SheetFor(quiz domain.Quiz, selected map[int]string) Sheet {
	return Sheet{
		Questions:    quiz.Questions,
		Selected:     selected,
		PassingScore: quiz.PassingScore,
		XPReward:     quiz.XPReward,
	}
}

// Outcome is the scored result of a sheet.
type Outcome struct {
	Percentage   int  `json:"percentage"`
	EarnedPoints int  `json:"earnedPoints"`
	MaxPoints    int  `json:"maxPoints"`
	Passed       bool `json:"passed"`
	XPAwarded    int  `json:"xpAwarded"`
	Band         Band `json:"band"`
}

var validate = validator.New()

// Score grades a sheet. It only reads its input, so identical sheets always
// produce identical outcomes. Malformed sheets return an error wrapping
// domain.ErrValidation and no outcome.
func Score(sheet Sheet) (Outcome, error) {
	if err := validate.Struct(sheet); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	earned, total := 0, 0
	for _, q := range sheet.Questions {
		total += q.Points
		if answer, ok := sheet.Selected[q.ID]; ok && answer == q.CorrectAnswer {
			earned += q.Points
		}
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(earned) / float64(total) * 100))
	}

	band, xp := award(percentage, sheet.PassingScore, sheet.XPReward)
	return Outcome{
		Percentage:   percentage,
		EarnedPoints: earned,
		MaxPoints:    total,
		Passed:       passed(percentage, sheet.PassingScore),
		XPAwarded:    xp,
		Band:         band,
	}, nil
}

// award picks the first matching band: full, then partial, then none.
func award(percentage, passingScore, reward int) (Band, int) {
	switch {
	case percentage >= passingScore:
		return BandFull, reward
	case float64(percentage) >= float64(passingScore)*partialThreshold:
		return BandPartial, int(math.Floor(float64(reward) * partialShare))
	default:
		return BandNone, 0
	}
}

// passed is decided on the percentage alone, independent of the XP band.
// An attempt in the zero-XP band is a fail.
func passed(percentage, passingScore int) bool {
	return percentage >= passingScore
}
