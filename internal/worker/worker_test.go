package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-catalog-search/internal/models"
	"go-catalog-search/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeLedger struct {
	err    error
	events []models.ItemEvent
}

func (f *fakeLedger) InsertMovementIdempotent(_ context.Context, e models.ItemEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

type fakeAcker struct {
	acks, nacks int
	ackErr      error
}

func (f *fakeAcker) Ack() error  { f.acks++; return f.ackErr }
func (f *fakeAcker) Nack() error { f.nacks++; return nil }

type fakeSource struct {
	ch  chan queue.Delivery
	err error
}

func (f *fakeSource) Consume() (<-chan queue.Delivery, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) RefreshMaterializedView(context.Context) error {
	f.calls++
	return nil
}

// --- Tests ---

func event() models.ItemEvent {
	return models.ItemEvent{
		EventID: "e-1", Kind: models.EventUpdated, ItemID: "i-1",
		Delta: -2, TotalAfter: 4, OccurredAt: time.Now().UTC(),
	}
}

func TestProcess_AcksAfterWrite(t *testing.T) {
	ledger := &fakeLedger{}
	ack := &fakeAcker{}

	New(ledger, nil).process(event(), ack)

	require.Len(t, ledger.events, 1)
	assert.Equal(t, "e-1", ledger.events[0].EventID)
	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
}

func TestProcess_NacksOnLedgerFailure(t *testing.T) {
	ledger := &fakeLedger{err: errors.New("lock timeout")}
	ack := &fakeAcker{}

	New(ledger, nil).process(event(), ack)

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
}

func TestRun_StopsWhenChannelCloses(t *testing.T) {
	src := &fakeSource{ch: make(chan queue.Delivery)}
	close(src.ch)

	err := New(&fakeLedger{}, src).Run(context.Background())
	assert.NoError(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := &fakeSource{ch: make(chan queue.Delivery)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(&fakeLedger{}, src).Run(ctx)
	assert.NoError(t, err)
}

func TestRun_ConsumeError(t *testing.T) {
	src := &fakeSource{err: errors.New("channel closed")}

	err := New(&fakeLedger{}, src).Run(context.Background())
	assert.Error(t, err)
}

func TestStartCronJobs_InvalidSchedule(t *testing.T) {
	_, err := StartCronJobs(&fakeRefresher{}, "every now and then")
	assert.Error(t, err)
}

func TestStartCronJobs_Valid(t *testing.T) {
	c, err := StartCronJobs(&fakeRefresher{}, "@hourly")
	require.NoError(t, err)
	<-c.Stop().Done()
}

func TestRefresh_CallsView(t *testing.T) {
	r := &fakeRefresher{}
	refresh(r)
	assert.Equal(t, 1, r.calls)
}
