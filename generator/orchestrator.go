package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"grant_assistant/document"
	"grant_assistant/logger"
)

// ErrGenerationInProgress is returned when a generate call arrives while
// another one is still in flight.
var ErrGenerationInProgress = errors.New("a generation is already in progress")

// Store is the part of the document store the orchestrator writes to.
type Store interface {
	Application() *document.Application
	CreateQuestionVersion(questionID, content string, source document.Source, modelID string) (*document.Application, error)
	UpdateLogframeGoal(goal string) (*document.Application, error)
	AddOutcome(o document.Outcome) (*document.Application, error)
	AddOutput(o document.Output) (*document.Application, error)
	AddActivity(a document.Activity) (*document.Application, error)
}

// Orchestrator runs one generation at a time: it builds the prompt, calls the
// backend and commits the result into the store before releasing its slot.
type Orchestrator struct {
	store   Store
	backend Backend
	models  *ModelRegistry
	log     *logger.Logger

	slot *semaphore.Weighted

	mu     sync.Mutex
	status Status
}

func NewOrchestrator(store Store, backend Backend, models *ModelRegistry, log *logger.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{
		store:   store,
		backend: backend,
		models:  models,
		log:     log,
		slot:    semaphore.NewWeighted(1),
	}, nil
}

// Status reports the generation in flight, if any.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// begin claims the single generation slot. The returned release clears the
// status before the slot becomes available again.
func (o *Orchestrator) begin(task, modelID string) (func(), error) {
	if !o.slot.TryAcquire(1) {
		return nil, ErrGenerationInProgress
	}
	o.mu.Lock()
	o.status = Status{
		Generating: true,
		Task:       task,
		RequestID:  uuid.NewString(),
		ModelID:    modelID,
		StartedAt:  time.Now(),
	}
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		o.status = Status{}
		o.mu.Unlock()
		o.slot.Release(1)
	}, nil
}

// call runs the backend inside the slot already held by the caller.
func (o *Orchestrator) call(ctx context.Context, prompt Prompt, model ModelConfig) (string, error) {
	st := o.Status()
	o.log.Info("generation started", "request_id", st.RequestID, "task", st.Task, "model", model.ID)
	start := time.Now()
	text, err := o.backend.Generate(ctx, prompt, model)
	if err != nil {
		o.log.Warn("generation failed", "request_id", st.RequestID, "model", model.ID, "err", err)
		return "", asBackendError(err, model.Provider)
	}
	o.log.Info("generation finished", "request_id", st.RequestID, "model", model.ID, "elapsed", time.Since(start).String(), "chars", len(text))
	return text, nil
}

// GenerateQuestionContent writes a new answer for a question and commits it
// as an ai version tagged with the editor model.
func (o *Orchestrator) GenerateQuestionContent(ctx context.Context, questionID string) (document.Version, error) {
	app := o.store.Application()
	if app == nil {
		return document.Version{}, document.ErrNoActiveDocument
	}
	q, ok := app.Question(questionID)
	if !ok {
		return document.Version{}, &document.NotFoundError{Kind: "question", ID: questionID}
	}
	model := o.models.ModelFor(ContextEditor)

	release, err := o.begin(fmt.Sprintf("Generating answer for %q", q.Title), model.ID)
	if err != nil {
		return document.Version{}, err
	}
	defer release()

	prompt := Prompt{
		System: SystemGrantWriter,
		User: BuildQuestionGenerationPrompt(
			q.PromptText,
			app.CriteriaItemDescriptions(),
			q.MaxWords,
			BuildQuestionContext(app.Title, q),
		),
	}
	text, err := o.call(ctx, prompt, model)
	if err != nil {
		return document.Version{}, err
	}

	next, err := o.store.CreateQuestionVersion(questionID, text, document.SourceAI, model.ID)
	if err != nil {
		return document.Version{}, err
	}
	committed, _ := next.Question(questionID)
	v, _ := committed.CurrentVersion()
	return v, nil
}

// GenerateGoal asks for a free-text goal and stores it trimmed.
func (o *Orchestrator) GenerateGoal(ctx context.Context) (string, error) {
	app := o.store.Application()
	if app == nil {
		return "", document.ErrNoActiveDocument
	}
	model := o.models.ModelFor(ContextLogframe)

	release, err := o.begin("Generating project goal...", model.ID)
	if err != nil {
		return "", err
	}
	defer release()

	text, err := o.call(ctx, Prompt{
		System: SystemLogframeWriter,
		User:   BuildGoalPrompt(BuildLogframeContext(app)),
	}, model)
	if err != nil {
		return "", err
	}
	goal := strings.TrimSpace(text)
	if _, err := o.store.UpdateLogframeGoal(goal); err != nil {
		return "", err
	}
	return goal, nil
}

func (o *Orchestrator) GenerateOutcome(ctx context.Context) (document.Outcome, error) {
	return generateElement(ctx, o, ElementOutcome,
		func(lf document.Logframe) []string {
			return descriptions(lf.Outcomes, func(e document.Outcome) string { return e.Description })
		},
		func(resp StructuredResponse) (document.Outcome, error) {
			next, err := o.store.AddOutcome(document.Outcome{Description: resp.Description, Indicators: resp.Indicators})
			if err != nil {
				return document.Outcome{}, err
			}
			return last(next.Logframe.Outcomes), nil
		})
}

func (o *Orchestrator) GenerateOutput(ctx context.Context) (document.Output, error) {
	return generateElement(ctx, o, ElementOutput,
		func(lf document.Logframe) []string {
			return descriptions(lf.Outputs, func(e document.Output) string { return e.Description })
		},
		func(resp StructuredResponse) (document.Output, error) {
			next, err := o.store.AddOutput(document.Output{
				Description:      resp.Description,
				Indicators:       resp.Indicators,
				LinkedActivities: []string{},
			})
			if err != nil {
				return document.Output{}, err
			}
			return last(next.Logframe.Outputs), nil
		})
}

// GenerateActivity keeps only the parsed description; timeline and resources
// are left for the author.
func (o *Orchestrator) GenerateActivity(ctx context.Context) (document.Activity, error) {
	return generateElement(ctx, o, ElementActivity,
		func(lf document.Logframe) []string {
			return descriptions(lf.Activities, func(e document.Activity) string { return e.Description })
		},
		func(resp StructuredResponse) (document.Activity, error) {
			next, err := o.store.AddActivity(document.Activity{
				Description: resp.Description,
				Resources:   []string{},
			})
			if err != nil {
				return document.Activity{}, err
			}
			return last(next.Logframe.Activities), nil
		})
}

// generateElement runs one logframe flow. commit is called while the slot is
// still held.
func generateElement[T any](
	ctx context.Context,
	o *Orchestrator,
	kind ElementKind,
	existing func(document.Logframe) []string,
	commit func(StructuredResponse) (T, error),
) (T, error) {
	var zero T
	app := o.store.Application()
	if app == nil {
		return zero, document.ErrNoActiveDocument
	}
	model := o.models.ModelFor(ContextLogframe)

	release, err := o.begin(fmt.Sprintf("Generating %s...", kind), model.ID)
	if err != nil {
		return zero, err
	}
	defer release()

	text, err := o.call(ctx, Prompt{
		System: SystemLogframeJSON,
		User:   BuildLogframeElementPrompt(kind, BuildLogframeContext(app), existing(app.Logframe)),
	}, model)
	if err != nil {
		return zero, err
	}
	return commit(ParseStructuredResponse(text))
}

func descriptions[T any](items []T, desc func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, desc(item))
	}
	return out
}

func last[T any](items []T) T {
	return items[len(items)-1]
}
