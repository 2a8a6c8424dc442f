package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddURI(t *testing.T) {
	var n Notifications
	require.NoError(t, n.AddURI(ScanComplete, "generic://example.com/hook"))
	require.NoError(t, n.AddURI(EnrichComplete, "generic://example.com/hook"))
	require.NoError(t, n.AddURI(EnrichError, "generic://example.com/hook"))

	err := n.AddURI("not-an-event", "generic://example.com/hook")
	assert.ErrorIs(t, err, ErrUnknownEvent)

	var count int
	n.IterMappings(func(Event, string) { count++ })
	assert.Equal(t, 3, count)
}

func TestSendNoMappings(t *testing.T) {
	var n Notifications
	// nothing registered for the event, must be a silent no-op
	n.Send(context.Background(), ScanComplete, "hello")
}
