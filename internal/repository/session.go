// Package repository stores the interview session record.
//
// The whole session is one JSON document that is overwritten on every save.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blockedby/interview-os/internal/models"
)

// DefaultKey names the record when none is configured.
const DefaultKey = "interview-os-state"

// ErrCorruptRecord is returned when a stored record cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt session record")

// SessionRepository loads and saves the session record.
type SessionRepository interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s models.Session) error
	Close() error
}

func encodeSession(s models.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

func decodeSession(data []byte) (*models.Session, error) {
	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return &s, nil
}
