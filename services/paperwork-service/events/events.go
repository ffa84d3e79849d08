// Package events publishes paperwork lifecycle notifications. Delivery is
// fire-and-forget: a failed publish never fails the operation that caused it.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/RigelNana/arkpaper/services/paperwork-service/models"
)

const (
	TypeVersionSubmitted = "version_submitted"
	TypeReviewRecorded   = "review_recorded"
)

type Event struct {
	Type        string          `json:"type"`
	PaperworkID uuid.UUID       `json:"paperwork_id"`
	VersionNo   int             `json:"version_no,omitempty"`
	Decision    models.Decision `json:"decision,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func VersionSubmitted(paperworkID uuid.UUID, versionNo int, at time.Time) Event {
	return Event{Type: TypeVersionSubmitted, PaperworkID: paperworkID, VersionNo: versionNo, OccurredAt: at}
}

func ReviewRecorded(paperworkID uuid.UUID, decision models.Decision, at time.Time) Event {
	return Event{Type: TypeReviewRecorded, PaperworkID: paperworkID, Decision: decision, OccurredAt: at}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to the notification collaborator.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.WithFields(logrus.Fields{
		"event":        ev.Type,
		"paperwork_id": ev.PaperworkID,
		"version_no":   ev.VersionNo,
		"decision":     ev.Decision,
	}).Info("paperwork event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// RecordingPublisher keeps events in memory. Err, when set, is returned from
// every Publish after the event is recorded.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

func (p *RecordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.Err
}

func (p *RecordingPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *RecordingPublisher) Close() error { return nil }
