// Package protocol defines the JSON messages exchanged with the document
// authority over a document connection.
package protocol

import (
	"encoding/json"
	"fmt"

	"collabtext/pkg/diff"
	"collabtext/pkg/errors"
)

// Type identifies the kind of a message. Every message carries it in its
// "type" field.
type Type string

const (
	// Client to server.
	TypeInsert Type = "edit.insert"
	TypeDelete Type = "edit.delete"
	TypeCursor Type = "cursor.update"

	// Server to client.
	TypeSnapshot Type = "snapshot"
	TypeUpdate   Type = "doc.update"
	TypeAck      Type = "ack"
	TypeNack     Type = "nack"
	TypePresence Type = "presence.cursor"
)

// ErrMalformed is returned by Decode for payloads that are not a JSON object
// with a string type field.
var ErrMalformed = errors.New("malformed message")

// Insert is sent when the local user inserted text.
type Insert struct {
	Type  Type   `json:"type"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Delete is sent when the local user removed text.
type Delete struct {
	Type   Type `json:"type"`
	Index  int  `json:"index"`
	Length int  `json:"length"`
}

// CursorData is the presence payload of a cursor update.
type CursorData struct {
	Index int `json:"index"`
}

// Cursor is sent when the local caret moves. The authority relays it to the
// other editors of the document as a presence.cursor message.
type Cursor struct {
	Type Type       `json:"type"`
	Data CursorData `json:"data"`
	Ts   int64      `json:"ts"`
}

// EncodeOp returns the wire form of an edit operation.
func EncodeOp(op diff.Op) ([]byte, error) {
	switch op := op.(type) {
	case diff.Insert:
		return json.Marshal(Insert{Type: TypeInsert, Index: op.Index, Text: op.Text})
	case diff.Delete:
		return json.Marshal(Delete{Type: TypeDelete, Index: op.Index, Length: op.Length})
	default:
		return nil, fmt.Errorf("unknown op type %T", op)
	}
}

// EncodeCursor returns the wire form of a cursor update.
func EncodeCursor(index int, ts int64) ([]byte, error) {
	return json.Marshal(Cursor{Type: TypeCursor, Data: CursorData{Index: index}, Ts: ts})
}

// Message is a decoded server to client message. Fields that a message kind
// does not carry are left at their zero values.
type Message struct {
	Type Type `json:"type"`

	// Text is the full authoritative document text. It is nil when the
	// message did not include one, which matters for acks.
	Text *string `json:"text,omitempty"`

	// Version is the authority's document version, when reported.
	Version *int `json:"version,omitempty"`

	// Reason explains a nack.
	Reason string `json:"reason,omitempty"`

	// Data is the opaque presence payload.
	Data json.RawMessage `json:"data,omitempty"`

	// Raw is the undecoded payload.
	Raw json.RawMessage `json:"-"`
}

// Decode parses an inbound payload.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, errors.WithContext(ErrMalformed, err.Error())
	}
	if msg.Type == "" {
		return Message{}, errors.WithContext(ErrMalformed, "missing type")
	}
	msg.Raw = append(json.RawMessage(nil), data...)
	return msg, nil
}

// TextOrEmpty returns the message text, or "" if it carried none.
func (msg Message) TextOrEmpty() string {
	if msg.Text == nil {
		return ""
	}
	return *msg.Text
}

// Known reports whether the client understands messages of this type.
func (t Type) Known() bool {
	switch t {
	case TypeSnapshot, TypeUpdate, TypeAck, TypeNack, TypePresence:
		return true
	}
	return false
}
