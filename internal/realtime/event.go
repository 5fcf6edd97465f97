package realtime

import "encoding/json"

// Server-to-client push events.
const (
	EventMessageCreated = "message-created"
	EventMessageUpdated = "message-updated"
	EventMessageDeleted = "message-deleted"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
)

// Envelope is the wire format for everything crossing the websocket, in both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// TypingSignal is pushed to the receiver when the peer starts or stops typing.
type TypingSignal struct {
	SenderID string `json:"senderId"`
}

// TypingRequest is what a client sends to signal typing to a peer.
type TypingRequest struct {
	ReceiverID string `json:"receiverId"`
}

// DeletedSignal is pushed to both parties when a message is soft-deleted.
type DeletedSignal struct {
	MessageID string `json:"messageId"`
}

// MarshalEnvelope encodes an event name and payload into the wire envelope.
func MarshalEnvelope(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
