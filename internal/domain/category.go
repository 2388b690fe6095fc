package domain

// Category is the closed set of query categories. The trigger table, the
// display label and the prompt hint live together here: adding a category
// means extending all three in one place.
type Category string

const (
	CategorySchedule   Category = "SCHEDULE"
	CategoryRooms      Category = "ROOMS"
	CategoryTeachers   Category = "TEACHERS"
	CategoryDirections Category = "DIRECTIONS"
	CategoryContacts   Category = "CONTACTS"
	CategoryGeneral    Category = "GENERAL"
)

// CategoryTrigger maps a category to the substrings that select it. The
// slice order is the classification priority: the first category whose
// trigger matches wins.
type CategoryTrigger struct {
	Category Category
	Terms    []string
}

// CategoryTriggers is scanned in order by the classifier.
var CategoryTriggers = []CategoryTrigger{
	{CategorySchedule, []string{"расписание", "звонк"}},
	{CategoryRooms, []string{"кабинет", "лаборатор"}},
	{CategoryTeachers, []string{"учител", "педагог", "преподават"}},
	{CategoryDirections, []string{"направлен", "кружок", "секци"}},
	{CategoryContacts, []string{"контакт", "телефон", "адрес"}},
}

var categoryLabels = map[Category]string{
	CategorySchedule:   "расписание",
	CategoryRooms:      "кабинеты",
	CategoryTeachers:   "учителя",
	CategoryDirections: "направления",
	CategoryContacts:   "контакты",
	CategoryGeneral:    "общее",
}

var categoryHints = map[Category]string{
	CategorySchedule:   "КАТЕГОРИЯ: Расписание\nОбрати особое внимание на время, дни недели и смены.",
	CategoryRooms:      "КАТЕГОРИЯ: Кабинеты и лаборатории\nОпиши оборудование и возможности помещений.",
	CategoryTeachers:   "КАТЕГОРИЯ: Учителя и педагоги\nУкажи имена, квалификацию и достижения.",
	CategoryDirections: "КАТЕГОРИЯ: Направления и кружки\nОпиши программы, возраст участников и условия.",
	CategoryContacts:   "КАТЕГОРИЯ: Контакты\nУкажи точные телефоны, адреса и время работы.",
	CategoryGeneral:    "КАТЕГОРИЯ: Общая информация\nДай полный и информативный ответ.",
}

// Label returns the Russian display label used for category-match retrieval.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryGeneral]
}

// Hint returns the category-specific instruction embedded in the prompt.
func (c Category) Hint() string {
	if h, ok := categoryHints[c]; ok {
		return h
	}
	return categoryHints[CategoryGeneral]
}

// ValidationIssue classifies the validator's outcome. Issues are attached to
// responses, never raised as pipeline failures.
type ValidationIssue string

const (
	IssueNone          ValidationIssue = "NONE"
	IssueEmptyResponse ValidationIssue = "EMPTY_RESPONSE"
	IssueTooShort      ValidationIssue = "TOO_SHORT"
	IssueTruncated     ValidationIssue = "TRUNCATED"
	IssueHallucination ValidationIssue = "HALLUCINATION"
)
