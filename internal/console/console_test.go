package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xvzc/printbridge/internal/events"
)

func TestFormatEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 15, 0, time.Local)

	tcs := []struct {
		name  string
		input events.Event
		want  string
	}{
		{
			name:  "success",
			input: events.Event{Kind: events.KindSucceeded, Host: "10.0.0.5", Port: 9100, Time: at},
			want:  "09:30:15 Print sent → 10.0.0.5:9100",
		},
		{
			name:  "failure",
			input: events.Event{Kind: events.KindFailed, Detail: "Invalid ip", Time: at},
			want:  "09:30:15 Error: Invalid ip",
		},
		{
			name:  "notice",
			input: events.Event{Kind: events.KindNotice, Detail: "Server started on port 5179", Time: at},
			want:  "09:30:15 Server started on port 5179",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatEvent(tc.input))
		})
	}
}

func TestRun(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	ch := make(chan events.Event, 2)
	ch <- events.Event{Kind: events.KindSucceeded, Host: "10.0.0.5", Port: 9100, Time: time.Now()}
	ch <- events.Event{Kind: events.KindFailed, Detail: "Empty data", Time: time.Now()}
	close(ch)

	Run(context.Background(), &buf, ch)

	out := buf.String()
	assert.Contains(t, out, "Print sent → 10.0.0.5:9100")
	assert.Contains(t, out, "Error: Empty data")
}

func TestPrint(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	Print(&buf, events.Event{Kind: events.KindNotice, Detail: "Server started on port 5179", Time: time.Now()})

	assert.Contains(t, buf.String(), "Server started on port 5179")
}

func TestRun_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		Run(ctx, &bytes.Buffer{}, make(chan events.Event))
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPrintBanner(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	err := PrintBanner(&buf, Info{
		Version:    "v1.0.0",
		Addr:       "0.0.0.0:5179",
		URL:        "http://192.168.1.20:5179/print",
		EventsAddr: "0.0.0.0:5180",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "LISTEN  : 0.0.0.0:5179")
	assert.Contains(t, out, "URL     : http://192.168.1.20:5179/print")
	assert.Contains(t, out, "EVENTS  : ws://0.0.0.0:5180/events")
	assert.NotContains(t, out, "MDNS")
}
