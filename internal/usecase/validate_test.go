package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"urpaq/internal/domain"
	"urpaq/internal/logger"
)

func TestValidateEmptyResponse(t *testing.T) {
	v := NewValidator(logger.NewNop())

	for _, response := range []string{"", "   ", "\n\t"} {
		result := v.Validate(response, "вопрос")
		assert.False(t, result.Valid)
		assert.Equal(t, domain.IssueEmptyResponse, result.Issue)
		assert.Equal(t, emptyResponseText, result.Processed)
	}
}

func TestValidateTooShort(t *testing.T) {
	v := NewValidator(logger.NewNop())

	result := v.Validate("Короткий", "вопрос") // 8 runes
	assert.False(t, result.Valid)
	assert.Equal(t, domain.IssueTooShort, result.Issue)
	assert.Equal(t, tooShortText, result.Processed)
}

func TestValidateMinimumLengthAccepted(t *testing.T) {
	v := NewValidator(logger.NewNop())

	result := v.Validate("Десять бук", "вопрос") // exactly 10 runes
	assert.True(t, result.Valid)
	assert.Equal(t, domain.IssueNone, result.Issue)
}

func TestValidateTruncatesLongResponse(t *testing.T) {
	v := NewValidator(logger.NewNop())

	long := strings.Repeat("а", 4900) + ". " + strings.Repeat("б", 200)
	result := v.Validate(long, "вопрос")

	assert.True(t, result.Valid)
	assert.Equal(t, domain.IssueTruncated, result.Issue)
	assert.True(t, strings.HasSuffix(result.Processed, truncationMarker))

	// The cut backs up to the period inside the trailing window.
	body := strings.TrimSuffix(result.Processed, truncationMarker)
	assert.True(t, strings.HasSuffix(body, "."))
	assert.LessOrEqual(t, utf8.RuneCountInString(body), maxResponseLength)
}

func TestValidateTruncatesWithoutSentenceBoundary(t *testing.T) {
	v := NewValidator(logger.NewNop())

	long := strings.Repeat("б", 5200)
	result := v.Validate(long, "вопрос")

	assert.True(t, result.Valid)
	assert.Equal(t, domain.IssueTruncated, result.Issue)

	body := strings.TrimSuffix(result.Processed, truncationMarker)
	assert.Equal(t, maxResponseLength, utf8.RuneCountInString(body))
}

func TestValidateHallucinationPatterns(t *testing.T) {
	v := NewValidator(logger.NewNop())

	responses := []string{
		"К сожалению, я не знаю ответа на этот вопрос.",
		"Об этом информация отсутствует в документах.",
		"I don't know anything about that topic.",
		"There is no information available on this.",
	}

	for _, response := range responses {
		result := v.Validate(response, "вопрос")
		assert.False(t, result.Valid, "response: %s", response)
		assert.Equal(t, domain.IssueHallucination, result.Issue)
		assert.Equal(t, hallucinationText, result.Processed)
	}
}

func TestValidateNormalizesFormatting(t *testing.T) {
	v := NewValidator(logger.NewNop())

	response := "Ответ   с  лишними пробелами.\n\n\n\nИ лишними строками. [INST] мусор [/INST]\n- пункт один\n1) пункт два"
	result := v.Validate(response, "вопрос")

	assert.True(t, result.Valid)
	assert.NotContains(t, result.Processed, "   ")
	assert.NotContains(t, result.Processed, "\n\n\n")
	assert.NotContains(t, result.Processed, "[INST]")
	assert.Contains(t, result.Processed, "• пункт один")
	assert.Contains(t, result.Processed, "1. пункт два")
}

func TestValidateKeepsValidResponseContent(t *testing.T) {
	v := NewValidator(logger.NewNop())

	response := "Уроки начинаются в восемь утра, вторая смена с четырнадцати часов."
	result := v.Validate(response, "расписание")

	assert.True(t, result.Valid)
	assert.Equal(t, response, result.Processed)
}
