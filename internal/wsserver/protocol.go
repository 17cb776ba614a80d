// Package wsserver streams floatrans state to local WebSocket clients.
//
// # Frame protocol
//
// Every server message is a JSON text frame:
//
//	{"type": "state", "topic": "translator", "payload": {...}}
//
// Types are "welcome" (sent once on connect, payload {"clientId": ...}),
// "state" (latest snapshot for a topic) and "error". Clients send
//
//	{"action": "subscribe", "topics": ["translator", "shortcuts"]}
//
// and receive the most recent state of each newly subscribed topic
// immediately.
package wsserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Topics.
const (
	TopicTranslator = "translator"
	TopicShortcuts  = "shortcuts"
)

// Frame types.
const (
	FrameWelcome = "welcome"
	FrameState   = "state"
	FrameError   = "error"
)

const (
	subscribeAction   = "subscribe"
	unsubscribeAction = "unsubscribe"
)

var knownTopics = []string{TopicTranslator, TopicShortcuts}

// ErrUnknownTopic is returned for topics outside knownTopics.
var ErrUnknownTopic = errors.New("unknown topic")

// Frame is one server-to-client message.
type Frame struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClientMessage is a client subscribe or unsubscribe request.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

type welcomePayload struct {
	ClientID string `json:"clientId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ValidTopic reports whether topic can be subscribed to.
func ValidTopic(topic string) bool {
	return slices.Contains(knownTopics, topic)
}

// EncodeFrame marshals payload into a frame of the given type.
func EncodeFrame(frameType, topic string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("wsserver: encode %s payload: %w", frameType, err)
		}
		raw = b
	}
	return json.Marshal(Frame{Type: frameType, Topic: topic, Payload: raw})
}

// DecodeFrame parses a frame produced by EncodeFrame. Payload is left raw.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("wsserver: decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, errors.New("wsserver: decode frame: missing type")
	}
	return f, nil
}
