package interview

import (
	"github.com/blockedby/interview-os/internal/models"
)

// event types
const (
	EventCandidateAdded   = "candidate.added"
	EventCandidateUpdated = "candidate.updated"
	EventCandidateDeleted = "candidate.deleted"
	EventSessionUpdated   = "session.updated"
	EventNotice           = "interview.notice"
	EventConnectivity     = "connectivity.changed"
)

// Event is emitted after every committed change.
type Event struct {
	Type        string                 `json:"type"`
	CandidateID string                 `json:"candidate_id,omitempty"`
	Status      models.InterviewStatus `json:"status,omitempty"`
	Transition  string                 `json:"transition,omitempty"`
	Candidate   *models.Candidate      `json:"candidate,omitempty"`
	Notice      string                 `json:"notice,omitempty"`
	Online      *bool                  `json:"online,omitempty"`
}

func candidateEvent(typ string, c models.Candidate, transition string) Event {
	snapshot := c.Clone()
	return Event{
		Type:        typ,
		CandidateID: c.ID,
		Status:      c.Status,
		Transition:  transition,
		Candidate:   &snapshot,
	}
}
