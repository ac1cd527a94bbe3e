package document

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore() *Store {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewStore(
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return fixed }),
	)
}

func sampleApplication() Application {
	return Application{
		ID:    "app-1",
		Title: "Clean Water for All",
		Questions: []Question{
			{
				ID:               "q1",
				Title:            "Need",
				PromptText:       "Describe the need.",
				CurrentVersionID: "v1",
				Versions:         []Version{{ID: "v1", Content: "", Source: SourceUser}},
			},
			{
				ID:         "q2",
				Title:      "Approach",
				PromptText: "Describe the approach.",
			},
		},
	}
}

func TestWordCount(t *testing.T) {
	cases := map[string]int{
		"":                  0,
		"   \n\t ":          0,
		"  a   b  ":         2,
		"Hello world":       2,
		"one\ntwo\tthree":   3,
		"single":            1,
		" leading trailing ": 2,
	}
	for in, want := range cases {
		assert.Equal(t, want, WordCount(in), "WordCount(%q)", in)
	}
}

func TestWordCountIgnoresSurroundingWhitespace(t *testing.T) {
	for _, s := range []string{"a b c", "  x  ", "\n\nfoo bar\n", ""} {
		assert.Equal(t, WordCount(s), WordCount(" \t"+s+"\n "))
	}
}

func TestMutationsRequireApplication(t *testing.T) {
	s := newTestStore()

	_, err := s.UpdateLogframeGoal("goal")
	require.ErrorIs(t, err, ErrNoActiveDocument)
	_, err = s.AddOutcome(Outcome{Description: "x"})
	require.ErrorIs(t, err, ErrNoActiveDocument)
	_, err = s.CreateQuestionVersion("q1", "text", SourceAI, "m")
	require.ErrorIs(t, err, ErrNoActiveDocument)
	assert.Nil(t, s.Application())
}

func TestSetApplicationNormalizesQuestions(t *testing.T) {
	s := newTestStore()
	app := s.SetApplication(sampleApplication())

	q2, ok := app.Question("q2")
	require.True(t, ok)
	require.Len(t, q2.Versions, 1)
	cur, ok := q2.CurrentVersion()
	require.True(t, ok)
	assert.Equal(t, "", cur.Content)
	assert.Equal(t, SourceUser, cur.Source)
	assert.NotEmpty(t, app.Logframe.ID)
	assert.NotNil(t, app.Logframe.Outcomes)
}

func TestSetApplicationCopiesInput(t *testing.T) {
	s := newTestStore()
	in := sampleApplication()
	s.SetApplication(in)

	in.Questions[0].Versions[0].Content = "mutated by caller"
	q, _ := s.QuestionByID("q1")
	assert.Equal(t, "", q.Versions[0].Content)
}

func TestCreateQuestionVersionScenario(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())

	app, err := s.CreateQuestionVersion("q1", "Hello world", SourceAI, "model-x")
	require.NoError(t, err)

	q, ok := app.Question("q1")
	require.True(t, ok)
	require.Len(t, q.Versions, 2)
	assert.NotEqual(t, "v1", q.CurrentVersionID)

	cur, ok := q.CurrentVersion()
	require.True(t, ok)
	assert.Equal(t, "Hello world", cur.Content)
	assert.Equal(t, 2, cur.WordCount)
	assert.Equal(t, SourceAI, cur.Source)
	assert.Equal(t, "model-x", cur.GeneratedByModelID)
}

func TestCreateQuestionVersionIsAppendOnly(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())

	var contents []string
	q, _ := s.QuestionByID("q1")
	for _, v := range q.Versions {
		contents = append(contents, v.Content)
	}

	for i := 0; i < 5; i++ {
		before, _ := s.QuestionByID("q1")
		text := fmt.Sprintf("draft number %d", i)
		_, err := s.CreateQuestionVersion("q1", text, SourceUser, "")
		require.NoError(t, err)
		after, _ := s.QuestionByID("q1")

		require.Len(t, after.Versions, len(before.Versions)+1)
		for j, c := range contents {
			assert.Equal(t, c, after.Versions[j].Content)
		}
		contents = append(contents, text)
	}
}

func TestCreateQuestionVersionUnknownQuestion(t *testing.T) {
	s := newTestStore()
	before := s.SetApplication(sampleApplication())

	_, err := s.CreateQuestionVersion("nope", "text", SourceAI, "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Same(t, before, s.Application())
}

func TestCreateQuestionVersionRejectsUnknownSource(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())

	_, err := s.CreateQuestionVersion("q1", "text", Source("robot"), "")
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestUpdateQuestionContentEditsCurrentVersionOnly(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())
	_, err := s.CreateQuestionVersion("q1", "first draft", SourceAI, "m")
	require.NoError(t, err)

	app, err := s.UpdateQuestionContent("q1", "  edited   draft text ")
	require.NoError(t, err)

	q, _ := app.Question("q1")
	require.Len(t, q.Versions, 2)
	assert.Equal(t, "", q.Versions[0].Content)
	cur, _ := q.CurrentVersion()
	assert.Equal(t, "  edited   draft text ", cur.Content)
	assert.Equal(t, 3, cur.WordCount)
}

func TestUpdateQuestionContentUnknownQuestionIsNoop(t *testing.T) {
	s := newTestStore()
	before := s.SetApplication(sampleApplication())

	after, err := s.UpdateQuestionContent("missing", "text")
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestSetCurrentVersion(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())
	_, err := s.CreateQuestionVersion("q1", "second", SourceAI, "m")
	require.NoError(t, err)

	once, err := s.SetCurrentVersion("q1", "v1")
	require.NoError(t, err)
	twice, err := s.SetCurrentVersion("q1", "v1")
	require.NoError(t, err)

	assert.Same(t, once, twice)
	q, _ := twice.Question("q1")
	assert.Equal(t, "v1", q.CurrentVersionID)
	assert.Len(t, q.Versions, 2)
}

func TestSetCurrentVersionUnknownVersion(t *testing.T) {
	s := newTestStore()
	before := s.SetApplication(sampleApplication())

	_, err := s.SetCurrentVersion("q1", "does-not-exist")
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "version", nf.Kind)
	assert.Same(t, before, s.Application())

	_, err = s.SetCurrentVersion("nope", "v1")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "question", nf.Kind)
}

func TestSnapshotsAreNotMutated(t *testing.T) {
	s := newTestStore()
	first := s.SetApplication(sampleApplication())

	_, err := s.CreateQuestionVersion("q1", "new text", SourceAI, "m")
	require.NoError(t, err)
	_, err = s.UpdateQuestionContent("q1", "edited")
	require.NoError(t, err)
	_, err = s.AddOutcome(Outcome{Description: "outcome"})
	require.NoError(t, err)
	_, err = s.UpdateLogframeGoal("goal")
	require.NoError(t, err)

	q, _ := first.Question("q1")
	assert.Len(t, q.Versions, 1)
	assert.Equal(t, "v1", q.CurrentVersionID)
	assert.Equal(t, "", q.Versions[0].Content)
	assert.Empty(t, first.Logframe.Outcomes)
	assert.Equal(t, "", first.Logframe.Goal)
	assert.NotSame(t, first, s.Application())
}

func TestAddOutcomeScenario(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())

	app, err := s.AddOutcome(Outcome{Description: "Reduced poverty", Indicators: []string{"Income +10%"}})
	require.NoError(t, err)
	require.Len(t, app.Logframe.Outcomes, 1)

	added := app.Logframe.Outcomes[0]
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "Reduced poverty", added.Description)
	assert.Equal(t, []string{"Income +10%"}, added.Indicators)

	app, err = s.AddOutcome(Outcome{Description: "Better health"})
	require.NoError(t, err)
	require.Len(t, app.Logframe.Outcomes, 2)
	assert.NotEqual(t, added.ID, app.Logframe.Outcomes[1].ID)
	assert.Equal(t, []string{}, app.Logframe.Outcomes[1].Indicators)
}

func TestRemoveOutcomeUnknownIsNoop(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())
	before, err := s.AddOutcome(Outcome{Description: "keep me"})
	require.NoError(t, err)

	after, err := s.RemoveOutcome("unknown")
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Len(t, after.Logframe.Outcomes, 1)
}

func TestUpdateAndRemoveLogframeElements(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())

	app, err := s.AddOutput(Output{Description: "Wells built"})
	require.NoError(t, err)
	outID := app.Logframe.Outputs[0].ID
	app, err = s.AddActivity(Activity{Description: "Survey sites"})
	require.NoError(t, err)
	actID := app.Logframe.Activities[0].ID

	desc := "Ten wells built"
	app, err = s.UpdateOutput(outID, OutputPatch{Description: &desc, LinkedActivities: []string{actID}})
	require.NoError(t, err)
	out := app.Logframe.Outputs[0]
	assert.Equal(t, "Ten wells built", out.Description)
	assert.Equal(t, []string{actID}, out.LinkedActivities)
	assert.Equal(t, []string{}, out.Indicators)

	timeline := "Q1 2027"
	app, err = s.UpdateActivity(actID, ActivityPatch{Timeline: &timeline})
	require.NoError(t, err)
	assert.Equal(t, "Survey sites", app.Logframe.Activities[0].Description)
	assert.Equal(t, "Q1 2027", app.Logframe.Activities[0].Timeline)

	same, err := s.UpdateActivity("unknown", ActivityPatch{Timeline: &timeline})
	require.NoError(t, err)
	assert.Same(t, app, same)

	app, err = s.RemoveOutput(outID)
	require.NoError(t, err)
	assert.Empty(t, app.Logframe.Outputs)
	app, err = s.RemoveActivity(actID)
	require.NoError(t, err)
	assert.Empty(t, app.Logframe.Activities)
}

func TestUpdateOutcomeMergesPatch(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())
	app, err := s.AddOutcome(Outcome{Description: "a", Indicators: []string{"i1"}})
	require.NoError(t, err)
	id := app.Logframe.Outcomes[0].ID

	app, err = s.UpdateOutcome(id, OutcomePatch{Indicators: []string{"i2", "i3"}})
	require.NoError(t, err)
	assert.Equal(t, "a", app.Logframe.Outcomes[0].Description)
	assert.Equal(t, []string{"i2", "i3"}, app.Logframe.Outcomes[0].Indicators)
}

func TestEvaluationResultsAppendOnly(t *testing.T) {
	s := newTestStore()

	first := s.AddEvaluationResult(EvaluationResult{CriteriaID: "c1", QuestionID: "q1", VersionID: "v1", Score: 7})
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	log := s.EvaluationResults()
	s.AddEvaluationResult(EvaluationResult{CriteriaID: "c2", Score: 3})

	assert.Len(t, log, 1)
	assert.Len(t, s.EvaluationResults(), 2)
	assert.Equal(t, "c1", s.EvaluationResults()[0].CriteriaID)
}

func TestCurrentPointerAlwaysResolves(t *testing.T) {
	s := newTestStore()
	s.SetApplication(sampleApplication())
	rng := rand.New(rand.NewSource(42))
	questions := []string{"q1", "q2", "missing"}

	for i := 0; i < 200; i++ {
		qid := questions[rng.Intn(len(questions))]
		switch rng.Intn(3) {
		case 0:
			_, _ = s.CreateQuestionVersion(qid, fmt.Sprintf("text %d", i), SourceAI, "m")
		case 1:
			_, _ = s.UpdateQuestionContent(qid, fmt.Sprintf("edit %d", i))
		case 2:
			q, ok := s.QuestionByID(qid)
			target := "bogus"
			if ok && rng.Intn(2) == 0 {
				target = q.Versions[rng.Intn(len(q.Versions))].ID
			}
			_, _ = s.SetCurrentVersion(qid, target)
		}

		for _, q := range s.Application().Questions {
			require.NotEmpty(t, q.Versions)
			require.True(t, q.HasVersion(q.CurrentVersionID), "question %s points at %s", q.ID, q.CurrentVersionID)
		}
	}
}
