package models

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ScoringResult is the outcome for one answer. FinalScore is always within [0, MaxScore].
type ScoringResult struct {
	QuestionID      string  `json:"question_id"`
	SimilarityScore float64 `json:"similarity_score"`
	FinalScore      int     `json:"final_score"`
	MaxScore        int     `json:"max_score"`
}

// BatchResult is the outcome of a whole exam. Results are in request order.
type BatchResult struct {
	Results       []ScoringResult `json:"results"`
	TotalScore    int             `json:"total_score"`
	TotalMaxScore int             `json:"total_max_score"`
	Status        string          `json:"status"`
}

// SingleScoreResponse is the body returned by the single-answer endpoint.
type SingleScoreResponse struct {
	SimilarityScore float64 `json:"similarity_score"`
	FinalScore      int     `json:"final_score"`
	MaxScore        int     `json:"max_score"`
	Status          string  `json:"status"`
}

// ErrorResponse is the body of every error response. Details is only set
// when the server runs in debug mode.
type ErrorResponse struct {
	Error   string `json:"error"`
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// HealthResponse reports liveness and the state of the embedding model.
type HealthResponse struct {
	Status         string `json:"status"`
	ModelState     string `json:"model_state"`
	ModelSource    string `json:"model_source"`
	ModelID        string `json:"model_id,omitempty"`
	ModelFiles     int    `json:"model_files,omitempty"`
	ModelDiskBytes int64  `json:"model_disk_bytes,omitempty"`
}
