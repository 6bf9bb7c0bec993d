// Package chat implements the per-reservation message thread: sending,
// seen tracking and the polling dialog that keeps an open thread fresh.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
	"github.com/iliyamo/lab-equipment-reservation/internal/queue"
)

// ErrEmptyMessage is returned for blank message text.
var ErrEmptyMessage = errors.New("message is empty")

// API is the slice of the reservation client used for messaging.
type API interface {
	Get(ctx context.Context, id string) (*model.Reservation, error)
	SendMessage(ctx context.Context, id, sender, senderName, text string) (*model.Reservation, error)
	MarkSeen(ctx context.Context, id, userEmail string) error
}

// Publisher receives a message event after a successful send.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// UnseenCount counts the messages in r that identity has not seen.
func UnseenCount(r *model.Reservation, identity string) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, m := range r.Messages {
		if !m.SeenByUser(identity) {
			n++
		}
	}
	return n
}

// UnseenTotal sums UnseenCount over a list, for the badge on list pages.
func UnseenTotal(list []model.Reservation, identity string) int {
	n := 0
	for i := range list {
		n += UnseenCount(&list[i], identity)
	}
	return n
}

// Messenger reads and writes reservation threads through the API and
// announces each sent message on the event queue.
type Messenger struct {
	api    API
	events Publisher
	log    *zap.Logger
}

// NewMessenger builds a Messenger.  events may be nil.
func NewMessenger(api API, events Publisher, log *zap.Logger) *Messenger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Messenger{api: api, events: events, log: log}
}

// Send appends text to the thread of reservation id as who, then marks
// the thread seen for the sender.  The returned snapshot is the server's
// answer to the send; a failed mark-seen is logged and otherwise ignored.
func (m *Messenger) Send(ctx context.Context, id string, who model.Identity, text string) (*model.Reservation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	res, err := m.api.SendMessage(ctx, id, who.Sender(), who.DisplayName(), text)
	if err != nil {
		return nil, fmt.Errorf("send message on %s: %w", id, err)
	}
	if err := m.api.MarkSeen(ctx, id, who.Sender()); err != nil {
		m.log.Warn("mark seen after send", zap.String("reservation_id", id), zap.Error(err))
	}
	if m.events != nil {
		if err := m.events.Publish(ctx, queue.NewReservationEvent(queue.EventMessage, id, res, who)); err != nil {
			m.log.Warn("publish message event", zap.String("reservation_id", id), zap.Error(err))
		}
	}
	return res, nil
}

// Open marks every message of id seen for who and returns a fresh
// snapshot.  The mark-seen call is best-effort.
func (m *Messenger) Open(ctx context.Context, id string, who model.Identity) (*model.Reservation, error) {
	if err := m.api.MarkSeen(ctx, id, who.Sender()); err != nil {
		m.log.Warn("mark seen on open", zap.String("reservation_id", id), zap.Error(err))
	}
	res, err := m.api.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refetch reservation %s: %w", id, err)
	}
	return res, nil
}
