package interview

import (
	"errors"
	"fmt"
	"slices"

	"github.com/blockedby/interview-os/internal/models"
)

// queue errors
var (
	ErrRootNotFound  = errors.New("root question not found")
	ErrFollowUpLimit = errors.New("follow-up limit reached")
)

// Queue is the ordered question list of one interview.
type Queue []models.Question

// FollowUpCount returns how many follow-ups were inserted for rootID.
func (q Queue) FollowUpCount(rootID string) int {
	n := 0
	for _, item := range q {
		if item.FollowUpFor == rootID {
			n++
		}
	}
	return n
}

// InsertAfter returns a copy of q with fu placed directly after rootID and its existing
// follow-ups, ahead of every other pending root question.
func (q Queue) InsertAfter(rootID string, fu models.Question) (Queue, error) {
	root := slices.IndexFunc(q, func(item models.Question) bool { return item.ID == rootID })
	if root < 0 {
		return q, fmt.Errorf("%w: %s", ErrRootNotFound, rootID)
	}
	if q[root].IsFollowUp() {
		return q, fmt.Errorf("%w: %s is itself a follow-up", ErrFollowUpLimit, rootID)
	}
	if q.FollowUpCount(rootID) >= MaxFollowUpsPerRoot {
		return q, fmt.Errorf("%w: %s", ErrFollowUpLimit, rootID)
	}
	if slices.ContainsFunc(q, func(item models.Question) bool { return item.ID == fu.ID }) {
		return q, fmt.Errorf("%w: duplicate question id %s", ErrInvalidTransition, fu.ID)
	}

	pos := root + 1
	for pos < len(q) && q[pos].FollowUpFor == rootID {
		pos++
	}
	fu.FollowUpFor = rootID
	return slices.Insert(slices.Clone(q), pos, fu), nil
}
