package stream

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-contrib/sse"

	"github.com/jwalitptl/crm-api/internal/model"
)

const (
	EventConnected    = "connected"
	EventNotification = "notification"
	EventPing         = "ping"
	EventError        = "error"
)

// Event is one message destined for a stream. Payload is encoded to JSON
// when the event is written, not when it is queued.
type Event struct {
	Name    string
	Payload interface{}
}

type connectedPayload struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type messagePayload struct {
	Message string `json:"message"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func ConnectedEvent(userID int64) Event {
	return Event{Name: EventConnected, Payload: connectedPayload{Message: "Connected to notification stream", UserID: userID}}
}

func PingEvent() Event {
	return Event{Name: EventPing, Payload: messagePayload{Message: "keep-alive"}}
}

func NotificationEvent(n *model.Notification) Event {
	return Event{Name: EventNotification, Payload: n}
}

func ErrorEvent(msg string) Event {
	return Event{Name: EventError, Payload: errorPayload{Error: msg}}
}

// encodeFrame writes one SSE frame: id, event and a single data line.
func encodeFrame(w io.Writer, id uint64, name string, data []byte) error {
	return sse.Encode(w, sse.Event{
		Id:    strconv.FormatUint(id, 10),
		Event: name,
		Data:  string(data),
	})
}

func marshalPayload(ev Event) ([]byte, error) {
	return json.Marshal(ev.Payload)
}
