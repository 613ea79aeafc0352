package flow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/campusgate/campusbot/internal/domain"
)

// Validator checks one answer and returns its normalized form.
type Validator func(text string) (string, error)

// Validation is format-only: day and month digits are not range-checked, so
// 30.02.2024 passes. Review happens on the human side of the queue.
var datePattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// NonEmpty accepts any text with at least one non-space character.
func NonEmpty(hint string) Validator {
	return func(text string) (string, error) {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return "", domain.Invalid(domain.ValidationEmpty, hint)
		}
		return trimmed, nil
	}
}

// IntInRange accepts a whole number within [min, max].
func IntInRange(min, max int) Validator {
	return func(text string) (string, error) {
		trimmed := strings.TrimSpace(text)
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return "", domain.Invalid(domain.ValidationNotANumber, "введите целое число")
		}
		if n < min || n > max {
			return "", domain.Invalid(domain.ValidationOutOfRange,
				fmt.Sprintf("введите число от %d до %d", min, max))
		}
		return strconv.Itoa(n), nil
	}
}

// PositiveInt accepts a positive whole number of any size. Used for user
// and record ids.
func PositiveInt() Validator {
	return func(text string) (string, error) {
		trimmed := strings.TrimSpace(text)
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return "", domain.Invalid(domain.ValidationNotANumber, "введите числовой идентификатор")
		}
		if n <= 0 {
			return "", domain.Invalid(domain.ValidationOutOfRange, "идентификатор должен быть положительным")
		}
		return strconv.FormatInt(n, 10), nil
	}
}

// Date accepts a DD.MM.YYYY string.
func Date() Validator {
	return func(text string) (string, error) {
		trimmed := strings.TrimSpace(text)
		if !datePattern.MatchString(trimmed) {
			return "", domain.Invalid(domain.ValidationBadFormat, "введите дату в формате ДД.ММ.ГГГГ")
		}
		return trimmed, nil
	}
}
