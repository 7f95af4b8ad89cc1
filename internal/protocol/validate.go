package protocol

import (
	"math"
	"strings"

	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
)

// validator collects the first field violation of a frame. Checks after a
// failure are no-ops, so a frame reports exactly one field error.
type validator struct {
	err error
}

func (v *validator) fail(field, message string) {
	if v.err == nil {
		v.err = apperrors.FieldError(field, message)
	}
}

func (v *validator) id(field string, p *int64) int64 {
	if v.err != nil {
		return 0
	}
	if p == nil {
		v.fail(field, "is required")
		return 0
	}
	if *p < 1 {
		v.fail(field, "must be at least 1")
	}
	return *p
}

func (v *validator) count(field string, p *int) int {
	if v.err != nil {
		return 0
	}
	if p == nil {
		v.fail(field, "is required")
		return 0
	}
	if *p < 0 {
		v.fail(field, "must not be negative")
	}
	return *p
}

func (v *validator) duration(field string, p *float64) float64 {
	if v.err != nil {
		return 0
	}
	if p == nil {
		v.fail(field, "is required")
		return 0
	}
	if *p < 0 || math.IsNaN(*p) || math.IsInf(*p, 0) {
		v.fail(field, "must not be negative")
	}
	return *p
}

func (v *validator) text(field string, p *string) string {
	if v.err != nil {
		return ""
	}
	if p == nil {
		v.fail(field, "is required")
		return ""
	}
	if strings.TrimSpace(*p) == "" {
		v.fail(field, "must not be empty")
	}
	return *p
}

func (v *validator) flag(field string, p *bool) bool {
	if v.err != nil {
		return false
	}
	if p == nil {
		v.fail(field, "is required")
		return false
	}
	return *p
}

// ValidateQuestion checks the body of a question creation request: non-empty
// text and at least two distinct, non-empty answers.
func ValidateQuestion(question string, answers []string) error {
	if strings.TrimSpace(question) == "" {
		return apperrors.FieldError("question", "must not be empty")
	}
	if len(answers) < 2 {
		return apperrors.FieldError("answers", "must contain at least 2 answers")
	}
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if strings.TrimSpace(a) == "" {
			return apperrors.FieldError("answers", "must not contain empty answers")
		}
		if _, dup := seen[a]; dup {
			return apperrors.FieldError("answers", "must not contain duplicates")
		}
		seen[a] = struct{}{}
	}
	return nil
}
