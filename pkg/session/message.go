package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"rich-edit/pkg/editor"
	"rich-edit/pkg/imagestore"
)

// Client message types.
const (
	MsgCommand    = "command"
	MsgText       = "text"
	MsgPaste      = "paste"
	MsgKey        = "key"
	MsgSelect     = "select"
	MsgFocus      = "focus"
	MsgBlur       = "blur"
	MsgLinkBegin  = "link_begin"
	MsgLink       = "link"
	MsgLinkCancel = "link_cancel"
	MsgImageURL   = "image_url"
	MsgImageFile  = "image_file"
	MsgResize     = "resize"
	MsgSave       = "save"
	MsgPing       = "ping"
)

// Resize phases.
const (
	ResizeStart = "start"
	ResizeMove  = "move"
	ResizeEnd   = "end"
)

// Message is a client event. Only the fields of its type are set.
type Message struct {
	Type string `json:"type"`

	// command
	Action string `json:"action,omitempty"`
	Value  string `json:"value,omitempty"`

	// text, paste, link
	Text string `json:"text,omitempty"`

	// key
	editor.KeyEvent

	// select
	Anchor *editor.Position `json:"anchor,omitempty"`
	Focus  *editor.Position `json:"focus,omitempty"`

	// link, image_url
	URL     string `json:"url,omitempty"`
	AltText string `json:"alt_text,omitempty"`

	// image_file
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Data        string `json:"data,omitempty"`

	// resize
	Phase    string          `json:"phase,omitempty"`
	Position editor.Position `json:"position"`
	Corner   editor.Corner   `json:"corner,omitempty"`
	Point    editor.Point    `json:"point"`
	Box      editor.Size     `json:"box"`
}

var ErrBadMessage = errors.New("malformed message")

// DecodeMessage parses a client frame.
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	return msg, nil
}

// File decodes the image of an image_file message.
func (m Message) File() (imagestore.File, error) {
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return imagestore.File{}, fmt.Errorf("%w: image data: %v", ErrBadMessage, err)
	}
	return imagestore.File{Name: m.Name, ContentType: m.ContentType, Data: data}, nil
}

// mutates reports whether the message changes the editor, which viewers
// may not do.
func (m Message) mutates() bool {
	switch m.Type {
	case MsgPing:
		return false
	}
	return true
}

// Server message types.
const (
	OutSnapshot  = "snapshot"
	OutOperation = "operation"
	OutState     = "state"
	OutLink      = "link"
	OutError     = "error"
	OutPong      = "pong"
	OutSaved     = "saved"
	OutUserJoin  = "user_joined"
	OutUserLeave = "user_left"
)

// Snapshot is the full view sent to a client when it joins.
type Snapshot struct {
	Type        string            `json:"type"`
	ID          string            `json:"id"`
	DocumentID  string            `json:"document_id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Editable    string            `json:"editable"`
	Text        string            `json:"text"`
	Placeholder string            `json:"placeholder,omitempty"`
	Selection   *editor.Selection `json:"selection,omitempty"`
	State       editor.State      `json:"state"`
	Users       []User            `json:"users"`
	Version     int               `json:"version"`
	Role        Role              `json:"role"`
}

// Update carries a content change as operations against the previous markup.
type Update struct {
	Type       string      `json:"type"`
	Operations []Operation `json:"operations"`
	Version    int         `json:"version"`
	ClientID   string      `json:"client_id,omitempty"`
	Text       string      `json:"text"`
	Empty      bool        `json:"empty"`
	Timestamp  int64       `json:"timestamp"`
}

// StateUpdate carries the toolbar state and selection after an event.
type StateUpdate struct {
	Type      string            `json:"type"`
	State     editor.State      `json:"state"`
	Selection *editor.Selection `json:"selection,omitempty"`
}

// ErrorMessage is shown to the user who caused it.
type ErrorMessage struct {
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func errorMessage(err error) ErrorMessage {
	out := ErrorMessage{Type: OutError, Message: err.Error()}

	var validation *editor.ValidationError
	var upload *imagestore.UploadError
	switch {
	case errors.As(err, &validation):
		out.Field = validation.Field
		out.Message = validation.Reason.Error()
	case errors.As(err, &upload):
		out.Field = "image"
		out.Message = upload.Message
	}
	return out
}
