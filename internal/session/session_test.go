package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithNewJobID(t *testing.T) {
	ctx := WithNewJobID(context.Background())

	id, ok := JobIDFrom(ctx)
	require.True(t, ok)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	// An existing id is kept.
	again := WithNewJobID(ctx)
	id2, _ := JobIDFrom(again)
	assert.Equal(t, id, id2)
}

func TestJobIDFrom_Missing(t *testing.T) {
	_, ok := JobIDFrom(context.Background())
	assert.False(t, ok)
}

func TestPrinterAndPeer(t *testing.T) {
	ctx := WithPrinter(context.Background(), "10.0.0.5:9100")
	ctx = WithPeer(ctx, "192.168.1.20:51234")

	printer, ok := PrinterFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5:9100", printer)

	peer, ok := PeerFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.20:51234", peer)
}
