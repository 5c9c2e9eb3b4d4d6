package chat

import (
	"encoding/json"
	"strings"
)

// frameKind is the closed classification of an inbound frame. Anything that
// fails to parse or validate is frameUnknown and gets dropped; it never
// terminates the connection.
type frameKind int

const (
	frameUnknown frameKind = iota
	frameChat
	framePrivate
)

// Inbound frame type tags.
const (
	inboundTypeMessage = "message"
	inboundTypePrivate = "private"
)

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	To      string `json:"to"`
}

// decodeInbound parses and classifies a raw inbound frame. A missing type tag
// means a plain chat message.
func decodeInbound(data []byte) (inboundFrame, frameKind) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, frameUnknown
	}

	frame.Content = strings.TrimSpace(frame.Content)

	switch frame.Type {
	case inboundTypeMessage, "":
		if frame.Content == "" {
			return frame, frameUnknown
		}
		return frame, frameChat
	case inboundTypePrivate:
		if frame.Content == "" || frame.To == "" {
			return frame, frameUnknown
		}
		return frame, framePrivate
	default:
		return frame, frameUnknown
	}
}
