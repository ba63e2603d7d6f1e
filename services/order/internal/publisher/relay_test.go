package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/mykafka"
	"github.com/Skotchmaster/storefront/services/order/internal/models"
	"github.com/Skotchmaster/storefront/services/order/internal/repo"
	"github.com/Skotchmaster/storefront/services/order/internal/testutil"
)

type message struct {
	key, eventType string
	payload        []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	sent   []message
	failOn int
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, key, eventType string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn > 0 && len(f.sent)+1 == f.failOn {
		return f.err
	}
	f.sent = append(f.sent, message{key: key, eventType: eventType, payload: payload})
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func seedEvents(t *testing.T, r *repo.GormRepo, n int) []models.OutboxEvent {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	out := make([]models.OutboxEvent, 0, n)
	for i := 0; i < n; i++ {
		ev := models.OutboxEvent{
			AggregateID: uuid.New(),
			EventType:   "order.created",
			Payload:     []byte(`{}`),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, r.EnqueueEvent(context.Background(), &ev))
		out = append(out, ev)
	}
	return out
}

func TestProcessOnce_PublishesAndMarks(t *testing.T) {
	db := testutil.NewDB(t)
	r := repo.New(db)
	events := seedEvents(t, r, 3)
	pub := &fakePublisher{}
	relay := &Relay{Outbox: r, Publisher: pub, Batch: 10}

	n, err := relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pub.sent, 3)
	assert.Equal(t, events[0].AggregateID.String(), pub.sent[0].key)
	assert.Equal(t, "order.created", pub.sent[0].eventType)

	pending, err := r.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err = relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProcessOnce_StopsAtFirstFailure(t *testing.T) {
	db := testutil.NewDB(t)
	r := repo.New(db)
	events := seedEvents(t, r, 3)
	pub := &fakePublisher{failOn: 2, err: errors.New("broker down")}
	relay := &Relay{Outbox: r, Publisher: pub}

	n, err := relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := r.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, events[1].ID, pending[0].ID)
}

func TestProcessOnce_BreakerOpenLeavesRows(t *testing.T) {
	db := testutil.NewDB(t)
	r := repo.New(db)
	seedEvents(t, r, 2)
	relay := &Relay{Outbox: r, Publisher: &fakePublisher{failOn: 1, err: mykafka.ErrUnavailable}}

	n, err := relay.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 2, testutil.CountRows(t, db, &models.OutboxEvent{}))
}

func TestRun_StopsOnCancel(t *testing.T) {
	db := testutil.NewDB(t)
	r := repo.New(db)
	seedEvents(t, r, 2)
	pub := &fakePublisher{}
	relay := &Relay{Outbox: r, Publisher: pub, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
