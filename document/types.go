package document

import (
	"strings"
	"time"
)

// Source records who produced a version.
type Source string

const (
	SourceUser Source = "user"
	SourceAI   Source = "ai"
)

// CriteriaType classifies evaluation criteria.
type CriteriaType string

const (
	CriteriaRubric    CriteriaType = "rubric"
	CriteriaChecklist CriteriaType = "checklist"
	CriteriaCustom    CriteriaType = "custom"
)

// Application is the root aggregate of a grant application.
type Application struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Questions []Question           `json:"questions"`
	Logframe  Logframe             `json:"logframe"`
	Criteria  []EvaluationCriteria `json:"criteria"`
}

// Question is one prompt of the application together with its answer history.
type Question struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	PromptText       string    `json:"prompt_text"`
	MaxWords         *int      `json:"max_words,omitempty"`
	CurrentVersionID string    `json:"current_version_id"`
	Versions         []Version `json:"versions"`
}

// Version is one answer revision. Only the current version's content may be
// rewritten in place, by live editing.
type Version struct {
	ID                 string    `json:"id"`
	Content            string    `json:"content"`
	WordCount          int       `json:"word_count"`
	GeneratedByModelID string    `json:"generated_by_model_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	Source             Source    `json:"source"`
}

// Logframe is the logical framework of the project.
type Logframe struct {
	ID         string     `json:"id"`
	Goal       string     `json:"goal"`
	Outcomes   []Outcome  `json:"outcomes"`
	Outputs    []Output   `json:"outputs"`
	Activities []Activity `json:"activities"`
}

type Outcome struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Indicators  []string `json:"indicators"`
}

type Output struct {
	ID               string   `json:"id"`
	Description      string   `json:"description"`
	Indicators       []string `json:"indicators"`
	LinkedActivities []string `json:"linked_activities"`
}

type Activity struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Timeline    string   `json:"timeline"`
	Resources   []string `json:"resources"`
}

// OutcomePatch updates an outcome. Nil fields are left untouched.
type OutcomePatch struct {
	Description *string  `json:"description,omitempty"`
	Indicators  []string `json:"indicators,omitempty"`
}

// OutputPatch updates an output. Nil fields are left untouched.
type OutputPatch struct {
	Description      *string  `json:"description,omitempty"`
	Indicators       []string `json:"indicators,omitempty"`
	LinkedActivities []string `json:"linked_activities,omitempty"`
}

// ActivityPatch updates an activity. Nil fields are left untouched.
type ActivityPatch struct {
	Description *string  `json:"description,omitempty"`
	Timeline    *string  `json:"timeline,omitempty"`
	Resources   []string `json:"resources,omitempty"`
}

type EvaluationCriteria struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        CriteriaType   `json:"type"`
	Weight      *float64       `json:"weight,omitempty"`
	Items       []CriteriaItem `json:"items"`
}

type CriteriaItem struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	MaxScore    *float64 `json:"max_score,omitempty"`
}

// EvaluationResult is an append-only record of one evaluation.
type EvaluationResult struct {
	ID                 string    `json:"id"`
	CriteriaID         string    `json:"criteria_id"`
	QuestionID         string    `json:"question_id"`
	VersionID          string    `json:"version_id"`
	Score              float64   `json:"score"`
	Feedback           string    `json:"feedback"`
	EvaluatedByModelID string    `json:"evaluated_by_model_id,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// WordCount counts whitespace-delimited tokens. Blank content counts as zero.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// CurrentVersion returns the version the question currently points at.
func (q Question) CurrentVersion() (Version, bool) {
	for _, v := range q.Versions {
		if v.ID == q.CurrentVersionID {
			return v, true
		}
	}
	return Version{}, false
}

// HasVersion reports whether versionID belongs to the question.
func (q Question) HasVersion(versionID string) bool {
	for _, v := range q.Versions {
		if v.ID == versionID {
			return true
		}
	}
	return false
}

// Question looks up a question by id.
func (a *Application) Question(id string) (Question, bool) {
	if a == nil {
		return Question{}, false
	}
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// CriteriaItemDescriptions flattens item descriptions in declaration order.
func (a *Application) CriteriaItemDescriptions() []string {
	if a == nil {
		return nil
	}
	var out []string
	for _, c := range a.Criteria {
		for _, item := range c.Items {
			out = append(out, item.Description)
		}
	}
	return out
}
