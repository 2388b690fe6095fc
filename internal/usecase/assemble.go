package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"urpaq/internal/domain"
)

const (
	// NoInfoContext is the fixed context used when nothing was retrieved.
	NoInfoContext = "Информация не найдена в базе знаний."

	contextSeparator = "\n---\n"
	contextHeader    = "=== НАЙДЕННАЯ ИНФОРМАЦИЯ ===\n\n"
	contextFooter    = "\n=== КОНЕЦ ИНФОРМАЦИИ ===\n"

	defaultMaxContextLength = 4000
)

const promptTemplate = `Ты - AI помощник Дворца школьников "Digital Urpaq".

ТВОЯ ЗАДАЧА:
- Ответить на вопрос пользователя, используя ТОЛЬКО предоставленную информацию
- Быть точным, конкретным и полезным
- Если информации недостаточно, честно сказать об этом
- Отвечать на языке вопроса пользователя

%s

%s

ВОПРОС ПОЛЬЗОВАТЕЛЯ:
%s

ИНСТРУКЦИИ:
1. Внимательно изучи найденную информацию
2. Найди релевантные части, которые отвечают на вопрос
3. Сформулируй четкий и полный ответ
4. Если нужно, структурируй ответ списком или таблицей
5. Не придумывай информацию, которой нет в документах

ОТВЕТ:
`

// ContextAssembler turns ranked documents into a bounded prompt context and
// composes the final generation prompt.
type ContextAssembler struct {
	maxContextLength int
	log              *zap.SugaredLogger
}

func NewContextAssembler(maxContextLength int, log *zap.SugaredLogger) *ContextAssembler {
	if maxContextLength <= 0 {
		maxContextLength = defaultMaxContextLength
	}
	return &ContextAssembler{maxContextLength: maxContextLength, log: log}
}

// BuildContext formats ranked documents as indexed blocks with their scores,
// stopping before the length cap is crossed. At least one document is always
// included.
func (a *ContextAssembler) BuildContext(docs []domain.ScoredDocument, query domain.ProcessedQuery) string {
	if len(docs) == 0 {
		return NoInfoContext
	}

	var b strings.Builder
	b.WriteString(contextHeader)

	totalLength := 0
	docCount := 0
	for _, scored := range docs {
		block := formatDocument(scored, docCount+1)

		if totalLength+runeLen(block) > a.maxContextLength && docCount > 0 {
			a.log.Infow("context limit reached", "documents_used", docCount)
			break
		}

		b.WriteString(block)
		b.WriteString(contextSeparator)
		totalLength += runeLen(block)
		docCount++
	}

	b.WriteString(contextFooter)

	a.log.Infow("built context", "documents", docCount, "length", totalLength)
	return b.String()
}

// BuildPrompt fixes the role, the rules, the category hint, the context and
// the raw user query, in that order.
func (a *ContextAssembler) BuildPrompt(context, userQuery string, query domain.ProcessedQuery) string {
	return fmt.Sprintf(promptTemplate, query.Category.Hint(), context, userQuery)
}

func formatDocument(scored domain.ScoredDocument, index int) string {
	return fmt.Sprintf("Документ %d: %s\nРелевантность: %.2f\n\n%s",
		index, scored.Document.Name, scored.Score, scored.Document.Text)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
