package models

// TeamMember is a read-only roster snapshot supplied by the caller per
// generation request.
type TeamMember struct {
	UserID           string `json:"userId" validate:"required"`
	Name             string `json:"name" validate:"required"`
	RoleName         string `json:"roleName"`
	RoleDescription  string `json:"roleDescription,omitempty"`
	CurrentTaskCount int    `json:"currentTaskCount"`
	IsOverworked     bool   `json:"isOverworked"`
}

// SimilarityBasis identifies which pipeline produced a similarity score.
type SimilarityBasis string

const (
	BasisString   SimilarityBasis = "string"
	BasisSemantic SimilarityBasis = "semantic"
	BasisHybrid   SimilarityBasis = "hybrid"
)

// SimilarityResult is the transient outcome of comparing a candidate
// against one existing task. Never persisted.
type SimilarityResult struct {
	Similarity float64         `json:"similarity"`
	Basis      SimilarityBasis `json:"basis"`
}
