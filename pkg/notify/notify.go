// Package notify tells members about things that happened to their loans and
// reservations. Delivery is best effort: callers log a failed notification
// and carry on.
package notify

import (
	"context"
	"time"

	"github.com/bibliotech/bibliotech/pkg/metrics"
	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
)

const (
	EventLoanIssued           = "loan.issued"
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
)

type Event struct {
	ID        string                 `json:"event_id"`
	Type      string                 `json:"event_type"`
	Timestamp string                 `json:"timestamp"`
	MemberID  int                    `json:"member_id"`
	Email     string                 `json:"email"`
	Subject   string                 `json:"subject"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent fills in the ID and timestamp of an event.
func NewEvent(eventType string, memberID int, email, subject, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MemberID:  memberID,
		Email:     email,
		Subject:   subject,
		Message:   message,
		Payload:   map[string]interface{}{},
	}
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Send delivers event and logs instead of returning a failure.
func Send(ctx context.Context, n Notifier, event Event) {
	log := logger.FromContext(ctx)
	if err := n.Notify(ctx, event); err != nil {
		metrics.NotificationsSent.WithLabelValues(event.Type, "error").Inc()
		log.Err(err).Warn("notification failed", logger.Data{"event_id": event.ID, "event_type": event.Type, "member_id": event.MemberID})
		return
	}
	metrics.NotificationsSent.WithLabelValues(event.Type, "ok").Inc()
}

// LogNotifier writes notifications to the log. It is used when no broker is
// configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (*LogNotifier) Notify(ctx context.Context, event Event) error {
	logger.FromContext(ctx).Info("notification", logger.Data{
		"event_id":   event.ID,
		"event_type": event.Type,
		"member_id":  event.MemberID,
		"email":      event.Email,
		"subject":    event.Subject,
	})
	return nil
}

// Recorder keeps every event it is sent. Tests use it to check what was
// notified.
type Recorder struct {
	Events []Event
	Err    error
}

func (r *Recorder) Notify(_ context.Context, event Event) error {
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}
