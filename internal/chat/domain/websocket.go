package domain

import "encoding/json"

// Event websocket event name
type Event string

const (
	// EventSendMessage inbound compose
	EventSendMessage Event = "send-message"
	// EventReactMessage inbound reaction toggle
	EventReactMessage Event = "react-message"
	// EventTyping inbound typing signal
	EventTyping Event = "typing"

	// EventReceiveMessage broadcast of a created message
	EventReceiveMessage Event = "receive-message"
	// EventReactionUpdated broadcast of a message's full reaction set
	EventReactionUpdated Event = "message-reaction-updated"
	// EventUserTyping broadcast of a typing change
	EventUserTyping Event = "user-typing"
	// EventAck direct reply to a request carrying an ack id
	EventAck Event = "ack"
	// EventError direct error notice
	EventError Event = "error"
)

// WSRequest websocket Request
type WSRequest struct {
	Event Event           `json:"event"`
	AckID string          `json:"ack_id,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// WSResponse websocket Response
type WSResponse struct {
	Event   Event       `json:"event"`
	AckID   string      `json:"ack_id,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SendMessagePayload data of send-message
type SendMessagePayload struct {
	UserID  string `json:"userId"`
	Text    string `json:"text"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// ReactMessagePayload data of react-message
type ReactMessagePayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
}

// TypingPayload data of typing and user-typing
type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ReactionsPayload data of message-reaction-updated
type ReactionsPayload struct {
	MessageID string     `json:"messageId"`
	Reactions []Reaction `json:"reactions"`
}

// RoomEvent envelope carried between instances on the broker
type RoomEvent struct {
	Origin string          `json:"origin"`
	Event  Event           `json:"event"`
	Data   json.RawMessage `json:"data"`
}
