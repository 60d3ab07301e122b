package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_HistoryIsBounded(t *testing.T) {
	h := NewHub(zerolog.Nop(), 3)

	for i := range 5 {
		h.JobFailed(fmt.Sprintf("err %d", i))
	}

	history := h.History()
	require.Len(t, history, 3)
	assert.Equal(t, "err 2", history[0].Detail)
	assert.Equal(t, "err 4", history[2].Detail)
	for _, e := range history {
		assert.Equal(t, KindFailed, e.Kind)
		assert.False(t, e.Time.IsZero())
	}
}

func TestHub_DefaultLimit(t *testing.T) {
	h := NewHub(zerolog.Nop(), 0)

	for range DefaultHistory + 10 {
		h.Notice("tick")
	}

	assert.Len(t, h.History(), DefaultHistory)
}

func TestHub_Subscribe(t *testing.T) {
	h := NewHub(zerolog.Nop(), 10)
	h.Notice("started")

	history, ch, cancel := h.Subscribe(4)
	defer cancel()

	require.Len(t, history, 1)
	assert.Equal(t, Event{Kind: KindNotice, Detail: "started", Time: history[0].Time}, history[0])

	h.JobSucceeded("10.0.0.5", 9100)

	select {
	case e := <-ch:
		assert.Equal(t, KindSucceeded, e.Kind)
		assert.Equal(t, "10.0.0.5", e.Host)
		assert.Equal(t, 9100, e.Port)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	h := NewHub(zerolog.Nop(), 10)
	_, ch, cancel := h.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range 100 {
			h.Notice("flood")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Len(t, ch, 1)
}

func TestHub_Close(t *testing.T) {
	h := NewHub(zerolog.Nop(), 10)
	_, ch, cancel := h.Subscribe(1)

	h.Close()
	h.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	h.Notice("ignored")
	assert.Empty(t, h.History())

	history, late, _ := h.Subscribe(1)
	assert.Nil(t, history)
	_, ok = <-late
	assert.False(t, ok)
}

func TestHub_FixedClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := NewHub(zerolog.Nop(), 10)
	h.now = func() time.Time { return at }

	h.JobFailed("Invalid ip")

	assert.Equal(t, []Event{{Kind: KindFailed, Detail: "Invalid ip", Time: at}}, h.History())
}
