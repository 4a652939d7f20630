package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomEvent(t *testing.T) {
	event, err := NewRoomEvent("42", "msg", map[string]int{"timeLeft": 30})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "42", event.RoomID)
	assert.Equal(t, "msg", event.Type)
	assert.False(t, event.Timestamp.IsZero())
	assert.JSONEq(t, `{"timeLeft":30}`, string(event.Data))
}

func TestNewRoomEventUnmarshalablePayload(t *testing.T) {
	_, err := NewRoomEvent("42", "msg", func() {})
	require.Error(t, err)
}

func TestRoomEventWireShape(t *testing.T) {
	event, err := NewRoomEvent("roomA", "start", map[string]any{"roomId": "roomA", "duration": 60})
	require.NoError(t, err)

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"id", "roomId", "type", "timestamp", "data"} {
		assert.Contains(t, decoded, key)
	}
}
