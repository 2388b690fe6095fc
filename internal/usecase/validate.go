package usecase

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"urpaq/internal/domain"
)

const (
	minResponseLength = 10
	maxResponseLength = 5000

	// Truncation backs up to the last sentence-ending period found within
	// this many characters of the cut.
	truncationWindow = 200

	truncationMarker = "\n\n[Ответ сокращен для удобства чтения]"

	emptyResponseText = "Извините, не удалось сформировать ответ. Попробуйте переформулировать вопрос."
	tooShortText      = "Ответ слишком короткий. Пожалуйста, уточните ваш вопрос."
	hallucinationText = "К сожалению, в базе знаний недостаточно информации для ответа на ваш вопрос. " +
		"Попробуйте задать более конкретный вопрос или обратитесь к администратору."
)

var (
	hallucinationRe = regexp.MustCompile(`(?i)(я не знаю|не могу сказать|информация отсутствует|данных нет|i don'?t know|cannot say|no information available)`)

	horizontalSpaceRe  = regexp.MustCompile(`[^\S\n]+`)
	newlineRunsRe      = regexp.MustCompile(`\n{3,}`)
	instructionTokenRe = regexp.MustCompile(`\[INST\]|\[/INST\]|<\|.*?\|>`)
	bulletRe           = regexp.MustCompile(`(?m)^[^\S\n]*[-*][^\S\n]+`)
	numberedRe         = regexp.MustCompile(`(?m)^[^\S\n]*(\d+)[.):][^\S\n]+`)
)

// ValidationResult is the validator's verdict plus the best-effort text to
// return either way.
type ValidationResult struct {
	Valid     bool
	Processed string
	Issue     domain.ValidationIssue
}

// Validator enforces length bounds, detects refusal phrasing and normalizes
// formatting. Validation never fails the pipeline; invalid responses still
// carry replacement text.
type Validator struct {
	log *zap.SugaredLogger
}

func NewValidator(log *zap.SugaredLogger) *Validator {
	return &Validator{log: log}
}

// Validate applies the rules in order: empty, too short, too long
// (truncated but valid), hallucination, then normalization.
func (v *Validator) Validate(response, originalQuery string) ValidationResult {
	if strings.TrimSpace(response) == "" {
		v.log.Warnw("empty response received")
		return ValidationResult{false, emptyResponseText, domain.IssueEmptyResponse}
	}

	length := runeLen(response)

	if length < minResponseLength {
		v.log.Warnw("response too short", "chars", length)
		return ValidationResult{false, tooShortText, domain.IssueTooShort}
	}

	if length > maxResponseLength {
		v.log.Warnw("response too long, truncating", "chars", length)
		return ValidationResult{true, truncateResponse(response), domain.IssueTruncated}
	}

	if hallucinationRe.MatchString(response) {
		v.log.Warnw("potential hallucination detected")
		return ValidationResult{false, hallucinationText, domain.IssueHallucination}
	}

	processed := postProcess(response)
	v.log.Infow("response validated", "length", runeLen(processed))
	return ValidationResult{true, processed, domain.IssueNone}
}

// truncateResponse cuts at the character cap, backs up to a sentence
// boundary when one falls inside the trailing window, and appends the
// truncation marker.
func truncateResponse(response string) string {
	runes := []rune(response)[:maxResponseLength]

	for i := len(runes) - 1; i >= maxResponseLength-truncationWindow; i-- {
		if runes[i] == '.' {
			runes = runes[:i+1]
			break
		}
	}

	return string(runes) + truncationMarker
}

// postProcess normalizes the accepted answer: trimmed, single spaces, at
// most one blank line, instruction tokens stripped, uniform list markers.
func postProcess(response string) string {
	processed := strings.TrimSpace(response)

	processed = horizontalSpaceRe.ReplaceAllString(processed, " ")
	processed = newlineRunsRe.ReplaceAllString(processed, "\n\n")
	processed = instructionTokenRe.ReplaceAllString(processed, "")

	processed = bulletRe.ReplaceAllString(processed, "• ")
	processed = numberedRe.ReplaceAllString(processed, "$1. ")

	return strings.TrimSpace(processed)
}
