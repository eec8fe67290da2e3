// Package notify carries user-facing notifications out of the award
// paths. Delivery is best effort; nothing in the engine waits on it.
package notify

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Event types published by the award and reconcile services.
const (
	TypeAwardGranted = "award.granted"
	TypeBonusGranted = "bonus.granted"
	TypeRankChanged  = "rank.changed"
)

// Event is one notification. Context carries free-form details such as
// the source tag or the channel the award happened in.
type Event struct {
	Type     string
	TenantID snowflake.ID
	UserID   string
	Points   int64
	Context  map[string]string
}

// Sink delivers events somewhere users can see them. Implementations
// must tolerate duplicate delivery.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// NoOpSink drops every event.
type NoOpSink struct{}

func (s *NoOpSink) Publish(ctx context.Context, event Event) error {
	return nil
}
