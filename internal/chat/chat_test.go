package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/lab-equipment-reservation/internal/model"
	"github.com/iliyamo/lab-equipment-reservation/internal/queue"
)

// threadAPI keeps one reservation whose thread grows on every send.
type threadAPI struct {
	mu      sync.Mutex
	r       model.Reservation
	seenErr error
	gets    atomic.Int32
}

func (a *threadAPI) Get(ctx context.Context, id string) (*model.Reservation, error) {
	a.gets.Add(1)
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := a.r
	cp.Messages = append([]model.Message(nil), a.r.Messages...)
	return &cp, nil
}

func (a *threadAPI) SendMessage(ctx context.Context, id, sender, senderName, text string) (*model.Reservation, error) {
	a.mu.Lock()
	a.r.Messages = append(a.r.Messages, model.Message{Sender: sender, SenderName: senderName, Message: text, Timestamp: time.Now()})
	a.r.Version++
	a.mu.Unlock()
	return a.Get(ctx, id)
}

func (a *threadAPI) MarkSeen(ctx context.Context, id, user string) error {
	if a.seenErr != nil {
		return a.seenErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.r.Messages {
		if !a.r.Messages[i].SeenByUser(user) {
			a.r.Messages[i].SeenBy = append(a.r.Messages[i].SeenBy, user)
		}
	}
	return nil
}

var (
	prof = model.Identity{Email: "x@uni.edu", Name: "Dr. X", Role: model.RoleFaculty}
	tech = model.Identity{Email: "tech@uni.edu", Name: "Lab Tech", Role: model.RoleStaff}
)

func TestUnseenCountAndOpen(t *testing.T) {
	api := &threadAPI{r: model.Reservation{ID: "1", Messages: []model.Message{
		{Sender: "tech@uni.edu", SeenBy: []string{"tech@uni.edu"}},
		{Sender: "tech@uni.edu", SeenBy: []string{"tech@uni.edu", "x@uni.edu"}},
		{Sender: "tech@uni.edu", SeenBy: []string{"tech@uni.edu"}},
	}}}
	r, _ := api.Get(context.Background(), "1")
	assert.Equal(t, 2, UnseenCount(r, prof.Sender()))
	assert.Equal(t, 0, UnseenCount(r, tech.Sender()))
	assert.Equal(t, 0, UnseenCount(nil, "x"))

	m := NewMessenger(api, nil, zap.NewNop())
	r, err := m.Open(context.Background(), "1", prof)
	require.NoError(t, err)
	assert.Equal(t, 0, UnseenCount(r, prof.Sender()))
	assert.Equal(t, 0, UnseenTotal([]model.Reservation{*r}, prof.Sender()))
}

func TestOpenToleratesSeenFailure(t *testing.T) {
	api := &threadAPI{r: model.Reservation{ID: "1", Messages: []model.Message{{Sender: "a"}}}, seenErr: errors.New("boom")}
	m := NewMessenger(api, nil, zap.NewNop())
	r, err := m.Open(context.Background(), "1", prof)
	require.NoError(t, err)
	assert.Equal(t, 1, UnseenCount(r, prof.Sender()))
}

type pubFunc func(ev queue.ReservationEvent)

func (f pubFunc) Publish(ctx context.Context, ev queue.ReservationEvent) error { f(ev); return nil }

func TestSendMarksSenderSeen(t *testing.T) {
	api := &threadAPI{r: model.Reservation{ID: "1"}}
	var kinds []string
	m := NewMessenger(api, pubFunc(func(ev queue.ReservationEvent) { kinds = append(kinds, ev.Kind) }), zap.NewNop())

	_, err := m.Send(context.Background(), "1", tech, "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	r, err := m.Send(context.Background(), "1", tech, " Items ready ")
	require.NoError(t, err)
	require.Len(t, r.Messages, 1)
	assert.Equal(t, "Items ready", r.Messages[0].Message)
	assert.Equal(t, "tech@uni.edu", r.Messages[0].Sender)
	assert.Equal(t, "Lab Tech", r.Messages[0].SenderName)
	assert.Equal(t, []string{queue.EventMessage}, kinds)

	r, _ = api.Get(context.Background(), "1")
	assert.Equal(t, 0, UnseenCount(r, tech.Sender()))
	assert.Equal(t, 1, UnseenCount(r, prof.Sender()))
}

func TestSenderFallsBackToUnknown(t *testing.T) {
	api := &threadAPI{r: model.Reservation{ID: "1"}}
	m := NewMessenger(api, nil, nil)
	r, err := m.Send(context.Background(), "1", model.Identity{}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", r.Messages[0].Sender)
}

func withMessages(n int) []model.Message {
	return make([]model.Message, n)
}

func TestNewer(t *testing.T) {
	t0 := time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, Newer(nil, &model.Reservation{}))
	assert.False(t, Newer(&model.Reservation{}, nil))
	assert.False(t, Newer(&model.Reservation{Version: 3}, &model.Reservation{Version: 2, Messages: withMessages(9)}))
	assert.True(t, Newer(&model.Reservation{Version: 3}, &model.Reservation{Version: 3}))
	assert.False(t, Newer(&model.Reservation{UpdatedAt: t0}, &model.Reservation{UpdatedAt: t0.Add(-time.Second), Messages: withMessages(4)}))
	assert.True(t, Newer(&model.Reservation{UpdatedAt: t0, Messages: withMessages(4)}, &model.Reservation{UpdatedAt: t0.Add(time.Second)}))
	assert.False(t, Newer(&model.Reservation{Messages: withMessages(2)}, &model.Reservation{Messages: withMessages(1)}))
}

// Snapshots are merged in a shuffled order; the held thread never shrinks.
func TestMergeNeverShrinksThread(t *testing.T) {
	for _, useVersion := range []bool{true, false} {
		var snaps []*model.Reservation
		for i := 1; i <= 20; i++ {
			r := &model.Reservation{ID: "1", Messages: withMessages(i)}
			if useVersion {
				r.Version = int64(i)
			}
			snaps = append(snaps, r)
		}
		order := []int{0, 2, 1, 5, 3, 4, 9, 6, 7, 8, 12, 10, 11, 19, 13, 14, 15, 16, 17, 18}
		d := &Dialog{id: "1"}
		seen := 0
		for _, i := range order {
			d.Merge(snaps[i])
			n := len(d.Snapshot().Messages)
			assert.GreaterOrEqual(t, n, seen)
			seen = n
		}
		assert.Len(t, d.Snapshot().Messages, 20)
	}
}

func TestPollerDeliversUpdates(t *testing.T) {
	api := &threadAPI{r: model.Reservation{ID: "1"}}
	p := NewPoller(api, 10*time.Millisecond, zap.NewNop())
	var lengths []int
	var mu sync.Mutex
	d := p.Open("1", nil, func(r *model.Reservation) {
		mu.Lock()
		lengths = append(lengths, len(r.Messages))
		mu.Unlock()
	})
	defer p.Stop()

	_, err := api.SendMessage(context.Background(), "1", "a", "A", "one")
	require.NoError(t, err)
	_, err = api.SendMessage(context.Background(), "1", "a", "A", "two")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := d.Snapshot()
		return s != nil && len(s.Messages) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(lengths); i++ {
		assert.GreaterOrEqual(t, lengths[i], lengths[i-1])
	}
}

func TestPollerOpenWhileUpdateReadsActive(t *testing.T) {
	api := &threadAPI{r: model.Reservation{ID: "1"}}
	p := NewPoller(api, 5*time.Millisecond, zap.NewNop())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	p.Open("1", nil, func(*model.Reservation) {
		once.Do(func() {
			close(entered)
			<-release
			p.Active()
		})
	})
	defer p.Stop()

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first dialog never delivered an update")
	}

	opened := make(chan *Dialog, 1)
	go func() { opened <- p.Open("2", nil, nil) }()
	time.Sleep(10 * time.Millisecond)
	close(release)

	select {
	case d := <-opened:
		assert.Equal(t, "2", d.ID())
		assert.Same(t, d, p.Active())
	case <-time.After(2 * time.Second):
		t.Fatal("Open blocked while the previous dialog was reading Active")
	}
}

func TestPollerKeepsOneDialog(t *testing.T) {
	api := &threadAPI{r: model.Reservation{ID: "1"}}
	p := NewPoller(api, 5*time.Millisecond, zap.NewNop())

	first := p.Open("1", nil, nil)
	second := p.Open("2", nil, nil)
	assert.True(t, first.Closed(), "opening a dialog stops the previous one")
	assert.False(t, second.Closed())
	assert.Same(t, second, p.Active())

	p.Stop()
	assert.True(t, second.Closed())
	assert.Nil(t, p.Active())

	calls := api.gets.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, api.gets.Load(), "no polling after Stop")

	second.Close() // idempotent
}
