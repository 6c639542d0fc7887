package types

// GenerateOptions carries per-call tuning for the generative-text service.
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	// JSONOnly appends an explicit "respond with valid JSON only"
	// instruction and requests a JSON response format where the
	// provider supports one. The engine still performs its own
	// parsing and repair; the schema is never assumed enforced.
	JSONOnly bool `json:"jsonOnly,omitempty"`
}

// Usage reports token consumption for one service call.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Total returns combined input and output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Add accumulates another usage record into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// GenerateResult is the raw outcome of one generate call: the text and,
// when the provider reports it, usage metadata.
type GenerateResult struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
	Usage *Usage `json:"usage,omitempty"`
}

// GeneratedTask is the wire shape of one task in a generation response.
// Dates arrive as YYYY-MM-DD strings and are parsed/repaired by the
// scheduler before the task becomes a candidate.
type GeneratedTask struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	PhaseNumber    int      `json:"phaseNumber"`
	Priority       string   `json:"priority"`
	AssigneeID     string   `json:"assigneeId,omitempty"`
	StartDate      string   `json:"startDate,omitempty"`
	DueDate        string   `json:"dueDate,omitempty"`
	EstimatedHours float64  `json:"estimatedHours,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// GenerationEnvelope is the top-level JSON object requested from the
// service for both the analysis and free-text generation paths.
type GenerationEnvelope struct {
	Tasks     []GeneratedTask `json:"tasks"`
	Summary   string          `json:"summary,omitempty"`
	NextSteps []string        `json:"nextSteps,omitempty"`
	Blockers  []string        `json:"blockers,omitempty"`
	Estimates map[string]string `json:"estimates,omitempty"`
}
