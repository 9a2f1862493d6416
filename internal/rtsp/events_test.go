package rtsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifier(t *testing.T) {
	n := newNotifier()
	var got []EventType
	unsubscribe := n.Subscribe(func(event *Event) { got = append(got, event.Type) })

	n.Publish(&Event{Type: EventTypeConnected})
	unsubscribe()
	n.Publish(&Event{Type: EventTypeClosed})
	require.Equal(t, []EventType{EventTypeConnected}, got)

	n.Subscribe(func(event *Event) { got = append(got, event.Type) })
	n.Stop()
	n.Publish(&Event{Type: EventTypeClosed})
	n.Subscribe(func(event *Event) { got = append(got, event.Type) })
	n.Publish(&Event{Type: EventTypeClosed})
	require.Equal(t, []EventType{EventTypeConnected}, got)

	require.Equal(t, "connected", EventTypeConnected.String())
	require.Equal(t, "closed", EventTypeClosed.String())
}
