package api

import (
	"github.com/blockedby/interview-os/internal/models"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status" example:"ok" description:"Health status"`
	Version string `json:"version" example:"dev" description:"Application version"`
	Online  bool   `json:"online" description:"Whether the online question service is reachable"`
}

// StatusResponse acknowledges an operation without a body of its own.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// CandidateResponse is a candidate plus the time left on its active question.
type CandidateResponse struct {
	models.Candidate
	RemainingSeconds *float64 `json:"remainingSeconds,omitempty" description:"Seconds left on the active question"`
}

// SetActiveRequest selects the active candidate. An empty id clears the selection.
type SetActiveRequest struct {
	CandidateID string `json:"candidateId" description:"Candidate ID, empty to clear"`
}

// SubmitAnswerRequest carries an answer to the active question.
type SubmitAnswerRequest struct {
	QuestionID string `json:"questionId" validate:"required" description:"ID of the question being answered"`
	Text       string `json:"text" description:"Answer text, empty for no answer"`
}

// TimeoutRequest reports that the timer of a question ran out.
type TimeoutRequest struct {
	QuestionID string `json:"questionId" validate:"required" description:"ID of the question whose timer fired"`
}

// ConnectivityRequest overrides the connectivity signal.
type ConnectivityRequest struct {
	Online *bool `json:"online" validate:"required" description:"New connectivity state"`
}

// ConnectivityResponse reports the connectivity signal.
type ConnectivityResponse struct {
	Online bool `json:"online"`
}

// ResumeResponse is the result of a resume upload.
type ResumeResponse struct {
	Profile models.CandidateProfile `json:"profile" description:"Extracted profile with resume text and ranked skills"`
}
