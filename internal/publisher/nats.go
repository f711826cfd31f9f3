// Package publisher fans committed interview changes out to NATS.
package publisher

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/blockedby/interview-os/internal/interview"
	"github.com/blockedby/interview-os/internal/logger"
)

// SubjectPrefix starts every published subject.
const SubjectPrefix = "interview"

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher implements interview.Broadcaster
type NATSPublisher struct {
	js  NATSClient
	log *zerolog.Logger
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{js: conn, log: logger.Component("publisher")}
}

// Broadcast publishes one engine event. Failures are logged, never returned:
// the change is already committed when it is broadcast.
func (p *NATSPublisher) Broadcast(event interface{}) {
	ev, ok := event.(interview.Event)
	if !ok {
		p.log.Warn().Type("event", event).Msg("unsupported event type")
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("marshal event")
		return
	}

	subject := Subject(ev)
	if err := p.js.Publish(subject, data); err != nil {
		p.log.Error().Err(err).Str("subject", subject).Msg("publish event")
	}
}

// Subject maps an event to its subject:
// interview.<candidate>.<status> for state changes, interview.<candidate>.<kind> for other
// candidate events and interview.<type> for session-wide events.
func Subject(ev interview.Event) string {
	if ev.CandidateID == "" {
		return SubjectPrefix + "." + ev.Type
	}

	kind := string(ev.Status)
	switch ev.Type {
	case interview.EventCandidateDeleted:
		kind = "deleted"
	case interview.EventNotice:
		kind = "notice"
	case interview.EventSessionUpdated:
		kind = "selected"
	}
	if kind == "" {
		kind = "updated"
	}
	return SubjectPrefix + "." + token(ev.CandidateID) + "." + kind
}

// token makes s safe to use as one subject token.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
