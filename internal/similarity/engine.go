// Package similarity computes duplicate likelihood between candidate
// and existing tasks: a cheap lexical first pass with high recall, then
// a generative-service semantic judgment for the close calls.
package similarity

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/taskforge/taskforge/llm"
	"github.com/taskforge/taskforge/models"
	"github.com/taskforge/taskforge/prompts"
	"github.com/taskforge/taskforge/types"
)

const (
	// StringFilterThreshold is the lexical score above which a pair is
	// worth a semantic check. A tunable recall knob, not an accident.
	StringFilterThreshold = 0.70

	// ExactThreshold and PossibleThreshold classify the combined score.
	ExactThreshold    = 0.90
	PossibleThreshold = 0.70

	// MaxSemanticChecks bounds external-call volume per candidate.
	MaxSemanticChecks = 3

	stringWeight   = 0.3
	semanticWeight = 0.7

	titleWeight = 0.6
	descWeight  = 0.4
)

// Engine runs the two-stage duplicate pipeline. A nil provider degrades
// every comparison to string-only scoring.
type Engine struct {
	provider llm.Provider
	opts     types.GenerateOptions
}

// NewEngine creates a similarity engine backed by the given provider for
// semantic judgments.
func NewEngine(provider llm.Provider, opts types.GenerateOptions) *Engine {
	return &Engine{provider: provider, opts: opts}
}

// StringSimilarity computes the lexical similarity of two tasks: title
// 60% (half normalized edit-distance similarity, half token-set
// Jaccard), description 40% with the same formula. When either
// description is empty the title score carries the full weight, so
// identical tasks always score 1.0.
func StringSimilarity(titleA, descA, titleB, descB string) float64 {
	titleScore := fieldSimilarity(titleA, titleB)
	if strings.TrimSpace(descA) == "" || strings.TrimSpace(descB) == "" {
		return titleScore
	}
	return titleWeight*titleScore + descWeight*fieldSimilarity(descA, descB)
}

// fieldSimilarity blends edit-distance similarity and token-set Jaccard
// half and half.
func fieldSimilarity(a, b string) float64 {
	return 0.5*editSimilarity(a, b) + 0.5*jaccardSimilarity(a, b)
}

// editSimilarity is 1 minus the normalized Levenshtein distance over the
// lowercased strings.
func editSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// jaccardSimilarity calculates word-level Jaccard similarity between two
// strings after tokenization and stop-word removal. Tokens match on
// equality or a shared prefix of at least three characters, so "setup"
// and "set up" still overlap. Symmetric by construction.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(tokenize(a))
	setB := tokenSet(tokenize(b))

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	matchedA := countMatched(setA, setB)
	matchedB := countMatched(setB, setA)
	intersection := float64(matchedA+matchedB) / 2
	union := float64(len(setA)+len(setB)) - intersection
	if union <= 0 {
		return 0.0
	}
	return intersection / union
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// countMatched counts tokens in a that have a match in b.
func countMatched(a, b map[string]bool) int {
	n := 0
	for ta := range a {
		for tb := range b {
			if tokensMatch(ta, tb) {
				n++
				break
			}
		}
	}
	return n
}

// tokensMatch reports equality or a prefix relation of length >= 3.
func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

var tokenSeparators = strings.NewReplacer(
	"-", " ", "_", " ", "/", " ", ".", " ", ",", " ",
	":", " ", ";", " ", "(", " ", ")", " ",
	"[", " ", "]", " ", "{", " ", "}", " ",
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"this": true, "that": true, "it": true, "its": true, "as": true,
}

// tokenize splits a string into lowercase word tokens, dropping very
// short words and common stop words.
func tokenize(s string) []string {
	s = tokenSeparators.Replace(strings.ToLower(s))
	var tokens []string
	for _, p := range strings.Fields(s) {
		if len(p) < 2 || stopWords[p] {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// floatRegex extracts the first 0..1 style number from a response.
var floatRegex = regexp.MustCompile(`(?:0(?:\.\d+)?|1(?:\.0+)?)`)

// SemanticSimilarity asks the generative service to score two tasks
// against an explicit rubric. Service failure or an unparseable reply
// falls back to the string similarity score rather than failing the
// comparison.
func (e *Engine) SemanticSimilarity(ctx context.Context, titleA, descA, titleB, descB string) models.SimilarityResult {
	stringScore := StringSimilarity(titleA, descA, titleB, descB)
	if e.provider == nil {
		return models.SimilarityResult{Similarity: stringScore, Basis: models.BasisString}
	}

	prompt := prompts.SemanticSimilarity(titleA, descA, titleB, descB)
	res, err := e.provider.Generate(ctx, prompt, e.opts)
	if err != nil {
		return models.SimilarityResult{Similarity: stringScore, Basis: models.BasisString}
	}

	score, ok := parseScore(res.Text)
	if !ok {
		return models.SimilarityResult{Similarity: stringScore, Basis: models.BasisString}
	}
	return models.SimilarityResult{Similarity: score, Basis: models.BasisSemantic}
}

// parseScore extracts and clamps a 0..1 float from the model's reply.
func parseScore(text string) (float64, bool) {
	m := floatRegex.FindString(strings.TrimSpace(text))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v, true
}

// match pairs an existing task with its lexical score.
type match struct {
	task  models.Task
	score float64
}

// DetectDuplicates classifies every candidate against the existing task
// set. The lexical pass filters to close candidates; at most
// MaxSemanticChecks of those (best first) get a semantic judgment,
// sequentially, and the best combined 0.3×string + 0.7×semantic score
// decides the classification. Inputs are never mutated; a new slice is
// returned.
func (e *Engine) DetectDuplicates(ctx context.Context, candidates []models.CandidateTask, existing []models.Task) []models.CandidateTask {
	out := make([]models.CandidateTask, len(candidates))
	copy(out, candidates)

	for i := range out {
		c := &out[i]
		c.DuplicateStatus = models.DuplicateUnique
		c.ExistingTaskID = nil

		var matches []match
		for _, ex := range existing {
			if ex.Status == models.StatusArchived {
				continue
			}
			score := StringSimilarity(c.Title, c.Description, ex.Title, ex.Description)
			if score >= StringFilterThreshold {
				matches = append(matches, match{task: ex, score: score})
			}
		}
		if len(matches) == 0 {
			continue
		}

		sort.SliceStable(matches, func(a, b int) bool { return matches[a].score > matches[b].score })
		if len(matches) > MaxSemanticChecks {
			matches = matches[:MaxSemanticChecks]
		}

		best := 0.0
		var bestID string
		// Sequential fan-out: bounded request volume, and the first
		// sufficiently similar match wins deterministically.
		for _, m := range matches {
			sem := e.SemanticSimilarity(ctx, c.Title, c.Description, m.task.Title, m.task.Description)
			combined := stringWeight*m.score + semanticWeight*sem.Similarity
			if combined > best {
				best = combined
				bestID = m.task.ID
			}
			if combined >= ExactThreshold {
				break
			}
		}

		switch {
		case best >= ExactThreshold:
			c.DuplicateStatus = models.DuplicateExact
		case best >= PossibleThreshold:
			c.DuplicateStatus = models.DuplicatePossible
		default:
			continue
		}
		id := bestID
		c.ExistingTaskID = &id
	}
	return out
}
