package task

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrEncode = errors.New("encode task message")

type Parameters struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// Message is the invocation record consumed by workers. Field names and
// order are part of the wire contract.
type Message struct {
	ID         string            `json:"id"`
	Namespace  string            `json:"namespace"`
	TaskName   string            `json:"taskname"`
	Parameters Parameters        `json:"parameters"`
	ReceivedAt float64           `json:"received_at"`
	Headers    map[string]string `json:"headers"`
	RetryState any               `json:"retry_state"`
}

// NewID returns 32 lowercase hex characters of a random (v4) UUID.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}
	return hex.EncodeToString(u[:]), nil
}

func NewMessage(namespace, taskName string, args []any, kwargs map[string]any, now time.Time) (*Message, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	return &Message{
		ID:        id,
		Namespace: namespace,
		TaskName:  taskName,
		Parameters: Parameters{
			Args:   args,
			Kwargs: kwargs,
		},
		ReceivedAt: UnixSeconds(now),
		Headers:    map[string]string{},
		RetryState: nil,
	}, nil
}

func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func Encode(m *Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode task message: %w", err)
	}
	return &m, nil
}
