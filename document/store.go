package document

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the system of record for the loaded application.
//
// Every mutation builds a new *Application and swaps it in; snapshots handed
// out earlier are never written to again. Callers must treat snapshots as
// read-only. A mutation that changes nothing returns the current snapshot
// pointer unchanged.
type Store struct {
	mu          sync.RWMutex
	app         *Application
	evaluations []EvaluationResult

	now   func() time.Time
	newID func() string
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used for CreatedAt/Timestamp fields.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides identifier generation.
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *Store) { s.newID = newID }
}

// NewStore returns an empty store with no application loaded.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Application returns the current snapshot, or nil when nothing is loaded.
func (s *Store) Application() *Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

// SetApplication replaces the root aggregate wholesale. The input is copied,
// missing identifiers are assigned and every question is given a resolvable
// current version.
func (s *Store) SetApplication(app Application) *Application {
	next := s.normalize(app)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = next
	return next
}

// QuestionByID looks a question up in the current snapshot.
func (s *Store) QuestionByID(questionID string) (Question, bool) {
	return s.Application().Question(questionID)
}

// UpdateQuestionContent rewrites the current version in place (live editing).
// Unknown questions are ignored.
func (s *Store) UpdateQuestionContent(questionID, content string) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		qi := slices.IndexFunc(app.Questions, func(q Question) bool { return q.ID == questionID })
		if qi < 0 {
			return app, nil
		}
		q := app.Questions[qi]
		vi := slices.IndexFunc(q.Versions, func(v Version) bool { return v.ID == q.CurrentVersionID })
		if vi < 0 {
			return app, nil
		}
		v := q.Versions[vi]
		v.Content = content
		v.WordCount = WordCount(content)
		q.Versions = replaceAt(q.Versions, vi, v)
		return withQuestionAt(app, qi, q), nil
	})
}

// CreateQuestionVersion appends a new version and makes it current.
func (s *Store) CreateQuestionVersion(questionID, content string, source Source, modelID string) (*Application, error) {
	if source == "" {
		source = SourceUser
	}
	if source != SourceUser && source != SourceAI {
		return nil, fmt.Errorf("%w %q", ErrInvalidSource, source)
	}
	return s.mutate(func(app *Application) (*Application, error) {
		qi := slices.IndexFunc(app.Questions, func(q Question) bool { return q.ID == questionID })
		if qi < 0 {
			return nil, notFound("question", questionID)
		}
		q := app.Questions[qi]
		v := Version{
			ID:                 s.newID(),
			Content:            content,
			WordCount:          WordCount(content),
			GeneratedByModelID: modelID,
			CreatedAt:          s.now(),
			Source:             source,
		}
		q.Versions = appendItem(q.Versions, v)
		q.CurrentVersionID = v.ID
		return withQuestionAt(app, qi, q), nil
	})
}

// SetCurrentVersion points the question at one of its existing versions.
func (s *Store) SetCurrentVersion(questionID, versionID string) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		qi := slices.IndexFunc(app.Questions, func(q Question) bool { return q.ID == questionID })
		if qi < 0 {
			return nil, notFound("question", questionID)
		}
		q := app.Questions[qi]
		if !q.HasVersion(versionID) {
			return nil, notFound("version", versionID)
		}
		if q.CurrentVersionID == versionID {
			return app, nil
		}
		q.CurrentVersionID = versionID
		return withQuestionAt(app, qi, q), nil
	})
}

// AddEvaluationResult appends to the evaluation log. It never fails.
func (s *Store) AddEvaluationResult(result EvaluationResult) EvaluationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.ID == "" {
		result.ID = s.newID()
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = s.now()
	}
	s.evaluations = appendItem(s.evaluations, result)
	return result
}

// EvaluationResults returns the evaluation log in insertion order.
func (s *Store) EvaluationResults() []EvaluationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.evaluations)
}

// UpdateLogframeGoal sets the logframe goal.
func (s *Store) UpdateLogframeGoal(goal string) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		next := *app
		next.Logframe.Goal = goal
		return &next, nil
	})
}

// AddOutcome appends an outcome under a fresh identifier.
func (s *Store) AddOutcome(o Outcome) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		o.ID = s.newID()
		o.Indicators = cloneStrings(o.Indicators)
		next := *app
		next.Logframe.Outcomes = appendItem(app.Logframe.Outcomes, o)
		return &next, nil
	})
}

// UpdateOutcome merges patch into the outcome with the given id. Unknown ids
// are ignored.
func (s *Store) UpdateOutcome(id string, patch OutcomePatch) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		i := slices.IndexFunc(app.Logframe.Outcomes, func(o Outcome) bool { return o.ID == id })
		if i < 0 {
			return app, nil
		}
		o := app.Logframe.Outcomes[i]
		if patch.Description != nil {
			o.Description = *patch.Description
		}
		if patch.Indicators != nil {
			o.Indicators = slices.Clone(patch.Indicators)
		}
		next := *app
		next.Logframe.Outcomes = replaceAt(app.Logframe.Outcomes, i, o)
		return &next, nil
	})
}

// RemoveOutcome drops the outcome with the given id. Unknown ids are ignored.
func (s *Store) RemoveOutcome(id string) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		i := slices.IndexFunc(app.Logframe.Outcomes, func(o Outcome) bool { return o.ID == id })
		if i < 0 {
			return app, nil
		}
		next := *app
		next.Logframe.Outcomes = removeAt(app.Logframe.Outcomes, i)
		return &next, nil
	})
}

// AddOutput appends an output under a fresh identifier.
func (s *Store) AddOutput(o Output) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		o.ID = s.newID()
		o.Indicators = cloneStrings(o.Indicators)
		o.LinkedActivities = cloneStrings(o.LinkedActivities)
		next := *app
		next.Logframe.Outputs = appendItem(app.Logframe.Outputs, o)
		return &next, nil
	})
}

// UpdateOutput merges patch into the output with the given id. Unknown ids
// are ignored.
func (s *Store) UpdateOutput(id string, patch OutputPatch) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		i := slices.IndexFunc(app.Logframe.Outputs, func(o Output) bool { return o.ID == id })
		if i < 0 {
			return app, nil
		}
		o := app.Logframe.Outputs[i]
		if patch.Description != nil {
			o.Description = *patch.Description
		}
		if patch.Indicators != nil {
			o.Indicators = slices.Clone(patch.Indicators)
		}
		if patch.LinkedActivities != nil {
			o.LinkedActivities = slices.Clone(patch.LinkedActivities)
		}
		next := *app
		next.Logframe.Outputs = replaceAt(app.Logframe.Outputs, i, o)
		return &next, nil
	})
}

// RemoveOutput drops the output with the given id. Unknown ids are ignored.
func (s *Store) RemoveOutput(id string) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		i := slices.IndexFunc(app.Logframe.Outputs, func(o Output) bool { return o.ID == id })
		if i < 0 {
			return app, nil
		}
		next := *app
		next.Logframe.Outputs = removeAt(app.Logframe.Outputs, i)
		return &next, nil
	})
}

// AddActivity appends an activity under a fresh identifier.
func (s *Store) AddActivity(a Activity) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		a.ID = s.newID()
		a.Resources = cloneStrings(a.Resources)
		next := *app
		next.Logframe.Activities = appendItem(app.Logframe.Activities, a)
		return &next, nil
	})
}

// UpdateActivity merges patch into the activity with the given id. Unknown
// ids are ignored.
func (s *Store) UpdateActivity(id string, patch ActivityPatch) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		i := slices.IndexFunc(app.Logframe.Activities, func(a Activity) bool { return a.ID == id })
		if i < 0 {
			return app, nil
		}
		a := app.Logframe.Activities[i]
		if patch.Description != nil {
			a.Description = *patch.Description
		}
		if patch.Timeline != nil {
			a.Timeline = *patch.Timeline
		}
		if patch.Resources != nil {
			a.Resources = slices.Clone(patch.Resources)
		}
		next := *app
		next.Logframe.Activities = replaceAt(app.Logframe.Activities, i, a)
		return &next, nil
	})
}

// RemoveActivity drops the activity with the given id. Unknown ids are ignored.
func (s *Store) RemoveActivity(id string) (*Application, error) {
	return s.mutate(func(app *Application) (*Application, error) {
		i := slices.IndexFunc(app.Logframe.Activities, func(a Activity) bool { return a.ID == id })
		if i < 0 {
			return app, nil
		}
		next := *app
		next.Logframe.Activities = removeAt(app.Logframe.Activities, i)
		return &next, nil
	})
}

// mutate serialises fn against the current snapshot and installs its result.
func (s *Store) mutate(fn func(app *Application) (*Application, error)) (*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.app == nil {
		return nil, ErrNoActiveDocument
	}
	next, err := fn(s.app)
	if err != nil {
		return nil, err
	}
	s.app = next
	return next, nil
}

func (s *Store) normalize(app Application) *Application {
	next := app
	if next.ID == "" {
		next.ID = s.newID()
	}

	next.Questions = make([]Question, len(app.Questions))
	for i, q := range app.Questions {
		q.Versions = slices.Clone(q.Versions)
		if q.MaxWords != nil {
			mw := *q.MaxWords
			q.MaxWords = &mw
		}
		for j := range q.Versions {
			v := &q.Versions[j]
			if v.ID == "" {
				v.ID = s.newID()
			}
			if v.Source == "" {
				v.Source = SourceUser
			}
			if v.CreatedAt.IsZero() {
				v.CreatedAt = s.now()
			}
			v.WordCount = WordCount(v.Content)
		}
		if len(q.Versions) == 0 {
			q.Versions = []Version{{ID: s.newID(), CreatedAt: s.now(), Source: SourceUser}}
		}
		if !q.HasVersion(q.CurrentVersionID) {
			q.CurrentVersionID = q.Versions[len(q.Versions)-1].ID
		}
		next.Questions[i] = q
	}

	lf := app.Logframe
	if lf.ID == "" {
		lf.ID = s.newID()
	}
	lf.Outcomes = make([]Outcome, len(app.Logframe.Outcomes))
	for i, o := range app.Logframe.Outcomes {
		if o.ID == "" {
			o.ID = s.newID()
		}
		o.Indicators = cloneStrings(o.Indicators)
		lf.Outcomes[i] = o
	}
	lf.Outputs = make([]Output, len(app.Logframe.Outputs))
	for i, o := range app.Logframe.Outputs {
		if o.ID == "" {
			o.ID = s.newID()
		}
		o.Indicators = cloneStrings(o.Indicators)
		o.LinkedActivities = cloneStrings(o.LinkedActivities)
		lf.Outputs[i] = o
	}
	lf.Activities = make([]Activity, len(app.Logframe.Activities))
	for i, a := range app.Logframe.Activities {
		if a.ID == "" {
			a.ID = s.newID()
		}
		a.Resources = cloneStrings(a.Resources)
		lf.Activities[i] = a
	}
	next.Logframe = lf

	next.Criteria = make([]EvaluationCriteria, len(app.Criteria))
	for i, c := range app.Criteria {
		if c.ID == "" {
			c.ID = s.newID()
		}
		c.Items = slices.Clone(c.Items)
		for j := range c.Items {
			if c.Items[j].ID == "" {
				c.Items[j].ID = s.newID()
			}
		}
		next.Criteria[i] = c
	}
	return &next
}

func withQuestionAt(app *Application, i int, q Question) *Application {
	next := *app
	next.Questions = replaceAt(app.Questions, i, q)
	return &next
}

func appendItem[T any](items []T, item T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, item)
}

func replaceAt[T any](items []T, i int, item T) []T {
	out := slices.Clone(items)
	out[i] = item
	return out
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
