package task

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)

	assert.Len(t, id, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", id)
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id, err := NewID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 500000000)

	msg, err := NewMessage("orders", "charge", []any{1, "a"}, map[string]any{"x": true}, now)
	require.NoError(t, err)

	data, err := Encode(msg)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	params := raw["parameters"].(map[string]any)
	assert.Equal(t, []any{float64(1), "a"}, params["args"])
	assert.Equal(t, map[string]any{"x": true}, params["kwargs"])
	assert.Equal(t, map[string]any{}, raw["headers"])
	assert.Contains(t, raw, "retry_state")
	assert.Nil(t, raw["retry_state"])
	assert.Equal(t, "orders", raw["namespace"])
	assert.Equal(t, "charge", raw["taskname"])
	assert.Equal(t, msg.ID, raw["id"])
	assert.InDelta(t, 1700000000.5, raw["received_at"], 1e-6)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, "charge", decoded.TaskName)
}

func TestEncode_FieldOrder(t *testing.T) {
	msg := &Message{
		ID:         "abc",
		Namespace:  "ns",
		TaskName:   "t",
		Parameters: Parameters{Args: []any{}, Kwargs: map[string]any{}},
		ReceivedAt: 1.5,
		Headers:    map[string]string{},
	}

	data, err := Encode(msg)
	require.NoError(t, err)

	expected := `{"id":"abc","namespace":"ns","taskname":"t","parameters":{"args":[],"kwargs":{}},"received_at":1.5,"headers":{},"retry_state":null}`
	assert.Equal(t, expected, string(data))
}

func TestNewMessage_NilParameters(t *testing.T) {
	msg, err := NewMessage("ns", "t", nil, nil, time.Now())
	require.NoError(t, err)

	data, err := Encode(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parameters":{"args":[],"kwargs":{}}`)
}

func TestEncode_Unsupported(t *testing.T) {
	msg, err := NewMessage("ns", "t", []any{make(chan int)}, nil, time.Now())
	require.NoError(t, err)

	_, err = Encode(msg)
	assert.ErrorIs(t, err, ErrEncode)

	msg, err = NewMessage("ns", "t", nil, map[string]any{"v": math.NaN()}, time.Now())
	require.NoError(t, err)

	_, err = Encode(msg)
	assert.ErrorIs(t, err, ErrEncode)
}
