package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/telemetry"
	"github.com/taskforge/taskforge/models"
	"github.com/taskforge/taskforge/types"
)

var testNow = func() time.Time {
	return time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC)
}

// mockProvider returns a canned response, optionally blocking until
// released so tests can overlap calls.
type mockProvider struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (m *mockProvider) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (*types.GenerateResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	if m.err != nil {
		return nil, m.err
	}
	return &types.GenerateResult{
		Text:  m.text,
		Model: "gpt-4o-mini",
		Usage: &types.Usage{InputTokens: 1000, OutputTokens: 500},
	}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// recorder captures telemetry events.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Track(event string, _ telemetry.Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Close() error { return nil }

func (r *recorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func testRequest() Request {
	return Request{
		ProjectName: "Atlas",
		Phases: []models.Phase{
			{PhaseNumber: 1, PhaseName: "Planning"},
			{PhaseNumber: 2, PhaseName: "Build", Data: map[string]any{"notes": "3 months of development"}},
		},
		ExistingTasks: []models.Task{
			{ID: "e1", Title: "Kickoff meeting", Status: models.StatusDone, Priority: models.PriorityLow},
		},
		Roster: []models.TeamMember{
			{UserID: "user-77", Name: "Ada", RoleName: "Backend Engineer"},
		},
	}
}

const analysisResponse = `{
  "tasks": [
    {"title": "Draft project charter", "description": "Scope and goals.", "phaseNumber": 1, "priority": "high", "assigneeId": "m1", "dueDate": "2026-09-05"},
    {"title": "Implement API skeleton", "description": "", "phaseNumber": 2, "priority": "bogus"}
  ],
  "summary": "Two-phase delivery plan.",
  "nextSteps": ["Confirm scope"],
  "blockers": [],
  "estimates": {"Phase 2": "3 months"}
}`

func TestAnalyzeProject(t *testing.T) {
	rec := &recorder{}
	e := New(&mockProvider{text: analysisResponse}, WithClock(testNow), WithTelemetry(rec))

	res, err := e.AnalyzeProject(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Tasks, 2)

	charter := res.Tasks[0]
	assert.Equal(t, models.PriorityHigh, charter.Priority)
	require.NotNil(t, charter.AssigneeID, "alias m1 should expand to the real user id")
	assert.Equal(t, "user-77", *charter.AssigneeID)
	require.NotNil(t, charter.DueDate)
	require.NotNil(t, charter.StartDate)
	assert.False(t, charter.StartDate.After(*charter.DueDate), "start must not pass due")

	api := res.Tasks[1]
	assert.Equal(t, models.PriorityMedium, api.Priority, "unknown priority defaults to medium")
	require.NotNil(t, api.DueDate, "missing due date must be repaired, not rejected")
	require.NotNil(t, api.StartDate)
	require.NotNil(t, api.AssigneeID, "matcher should propose the engineer for build work")
	assert.Equal(t, "user-77", *api.AssigneeID)

	assert.Equal(t, "Two-phase delivery plan.", res.Summary)
	assert.Equal(t, 1500, res.Usage.Usage.Total())
	assert.Greater(t, res.Usage.Cost, 0.0)
	assert.True(t, rec.has(telemetry.EventTasksGenerated))
}

func TestAnalyzeProject_MalformedResponseIsParseErrorWithoutRetry(t *testing.T) {
	p := &mockProvider{text: "I could not produce JSON today."}
	e := New(p, WithClock(testNow))

	_, err := e.AnalyzeProject(context.Background(), testRequest())
	require.Error(t, err)
	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.NotEmpty(t, parseErr.Preview)
	assert.Equal(t, 1, p.callCount(), "malformed responses must not trigger an automatic retry")
}

func TestAnalyzeProject_ServiceFailurePropagates(t *testing.T) {
	cause := &types.ServiceCallError{Operation: "generate", Err: errors.New("rate limited")}
	rec := &recorder{}
	e := New(&mockProvider{err: cause}, WithClock(testNow), WithTelemetry(rec))

	_, err := e.AnalyzeProject(context.Background(), testRequest())
	var svcErr *types.ServiceCallError
	require.ErrorAs(t, err, &svcErr)
	assert.True(t, rec.has(telemetry.EventGenerationFailed))
}

func TestAnalyzeProject_NoProvider(t *testing.T) {
	e := New(nil, WithClock(testNow))
	_, err := e.AnalyzeProject(context.Background(), testRequest())
	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestGenerateTasksFromPrompt(t *testing.T) {
	response := `{"tasks": [{"title": "Write onboarding doc", "phaseNumber": 1, "priority": "medium"}], "summary": "One task."}`
	e := New(&mockProvider{text: response}, WithClock(testNow))

	res, err := e.GenerateTasksFromPrompt(context.Background(), "We have 2 weeks to write the onboarding doc", testRequest())
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	task := res.Tasks[0]
	require.NotNil(t, task.DueDate)
	require.NotNil(t, task.StartDate)
	assert.False(t, task.StartDate.After(*task.DueDate))
	assert.Equal(t, "One task.", res.Summary)
}

func TestGenerateTasksFromPrompt_ServiceFailureYieldsNoTasks(t *testing.T) {
	e := New(&mockProvider{err: errors.New("boom")}, WithClock(testNow))
	res, err := e.GenerateTasksFromPrompt(context.Background(), "anything", testRequest())
	require.Error(t, err)
	assert.Nil(t, res, "primary generation failure must not return partial results")
}

func TestGenerate_InFlightDeduplication(t *testing.T) {
	p := &mockProvider{
		text:    analysisResponse,
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	e := New(p, WithClock(testNow))
	req := testRequest()

	var wg sync.WaitGroup
	results := make([]*AnalysisResult, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = e.AnalyzeProject(context.Background(), req)
	}()
	<-p.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = e.AnalyzeProject(context.Background(), req)
	}()
	// Give the second call time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(p.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, p.callCount(), "identical concurrent requests must share one service call")
	assert.Equal(t, results[0].Summary, results[1].Summary)
}

func TestDetectDuplicates_TracksCounts(t *testing.T) {
	rec := &recorder{}
	e := New(nil, WithTelemetry(rec))
	existing := []models.Task{{ID: "t-1", Title: "Set up CI pipeline", Status: models.StatusTodo}}
	candidates := []models.CandidateTask{{Title: "Set up CI pipeline", Priority: models.PriorityMedium}}

	out, err := e.DetectDuplicates(context.Background(), candidates, existing)
	require.NoError(t, err)
	assert.Equal(t, models.DuplicateExact, out[0].DuplicateStatus)
	assert.True(t, rec.has(telemetry.EventDuplicatesDetected))
}

func TestMergeTasks(t *testing.T) {
	rec := &recorder{}
	e := New(nil, WithClock(testNow), WithTelemetry(rec))
	generated := []models.CandidateTask{{Title: "New work", Priority: models.PriorityMedium}}

	plan := e.MergeTasks(nil, generated)
	assert.Len(t, plan.ToInsert, 1)
	assert.True(t, rec.has(telemetry.EventTasksMerged))
}
