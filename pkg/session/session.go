// Package session runs editors for websocket clients. Every event of a
// session goes through one goroutine, which owns the editor.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rich-edit/pkg/db"
	"rich-edit/pkg/editor"
	"rich-edit/pkg/imagestore"
	"rich-edit/pkg/metrics"
)

// Role decides what a client may do.
type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole maps the query value, defaulting to editor.
func ParseRole(s string) Role {
	if Role(s) == RoleViewer {
		return RoleViewer
	}
	return RoleEditor
}

var (
	ErrReadOnly = errors.New("viewers cannot edit")
	ErrClosed   = errors.New("session closed")
	ErrUnknown  = errors.New("unknown message type")
)

// Client is a connected websocket.
type Client struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Role     Role            `json:"role"`
	Conn     *websocket.Conn `json:"-"`
	Session  *Session        `json:"-"`
	Send     chan []byte     `json:"-"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Store is the part of the document store a session needs.
type Store interface {
	GetDocument(ctx context.Context, id string) (*db.Document, error)
	UpdateDocument(ctx context.Context, id string, updates *db.DocumentUpdate) (*db.Document, error)
}

type event struct {
	client *Client
	msg    Message
}

type uploadResult struct {
	client  *Client
	pending *editor.PendingImage
	src     string
	err     error
}

// Session is one editor over one stored document.
type Session struct {
	ID         string
	DocumentID string
	Title      string

	Register   chan *Client
	Unregister chan *Client

	events  chan event
	uploads chan uploadResult

	editor  *editor.Editor
	store   Store
	images  imagestore.Store
	log     *slog.Logger
	timeout time.Duration

	// content is the markup clients last received.
	content string
	version int
	dirty   bool
	resize  *editor.Resize

	clients map[string]*Client
	mutex   sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newSession(id string, doc *db.Document, store Store, images imagestore.Store, opts editor.Options, timeout time.Duration) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	opts.Content = doc.Content
	opts.ImageStore = images
	opts.Logger = log.With("session", id)
	opts.OnContentChange = nil
	opts.OnStateChange = nil

	ed, err := editor.New(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         id,
		DocumentID: doc.ID,
		Title:      doc.Title,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		events:     make(chan event, 64),
		uploads:    make(chan uploadResult),
		editor:     ed,
		store:      store,
		images:     images,
		log:        opts.Logger,
		timeout:    timeout,
		content:    ed.Content(),
		version:    doc.Version,
		clients:    make(map[string]*Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	return s, nil
}

// Receive queues a raw client frame. Malformed frames are answered with an
// error without reaching the loop.
func (s *Session) Receive(c *Client, raw []byte) error {
	msg, err := DecodeMessage(raw)
	if err != nil {
		metrics.Rejected.WithLabelValues("malformed").Inc()
		s.sendTo(c, errorMessage(err))
		return err
	}
	select {
	case s.events <- event{client: c, msg: msg}:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Join registers c unless the session has stopped.
func (s *Session) Join(c *Client) error {
	select {
	case s.Register <- c:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Leave unregisters c. It never blocks on a stopped session.
func (s *Session) Leave(c *Client) {
	select {
	case s.Unregister <- c:
	case <-s.ctx.Done():
	}
}

// Close stops the loop after saving pending changes.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// run handles session events
func (s *Session) run() {
	defer close(s.done)
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("panic in session loop", "panic", rec, "stack", string(debug.Stack()))
			s.cancel()
		}
	}()
	s.log.Debug("session loop started")

	for {
		select {
		case client := <-s.Register:
			s.mutex.Lock()
			s.clients[client.ID] = client
			s.mutex.Unlock()
			metrics.Clients.Inc()

			s.sendSnapshot(client)
			s.broadcastUser(OutUserJoin, client)
			s.log.Info("client joined", "client", client.ID, "role", client.Role)

		case client := <-s.Unregister:
			if !s.removeClient(client) {
				continue
			}
			s.broadcastUser(OutUserLeave, client)
			s.log.Info("client left", "client", client.ID)

			if s.clientCount() == 0 && s.dirty {
				s.save(nil)
			}

		case ev := <-s.events:
			s.handle(ev)

		case res := <-s.uploads:
			s.finishUpload(res)

		case <-s.ctx.Done():
			if s.dirty {
				s.save(nil)
			}
			s.mutex.Lock()
			for id, client := range s.clients {
				close(client.Send)
				delete(s.clients, id)
				metrics.Clients.Dec()
			}
			s.mutex.Unlock()
			return
		}
	}
}

// removeClient reports whether c was still registered.
func (s *Session) removeClient(c *Client) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.clients[c.ID]; !ok {
		return false
	}
	delete(s.clients, c.ID)
	close(c.Send)
	metrics.Clients.Dec()
	return true
}

func (s *Session) clientCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.clients)
}

// Users lists the clients currently attached.
func (s *Session) Users() []User {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	users := make([]User, 0, len(s.clients))
	for _, client := range s.clients {
		users = append(users, User{ID: client.ID, Username: client.Username, Role: client.Role})
	}
	return users
}

func (s *Session) handle(ev event) {
	c, msg := ev.client, ev.msg
	if msg.Type == MsgPing {
		s.sendTo(c, map[string]string{"type": OutPong})
		return
	}
	if c.Role == RoleViewer && msg.mutates() {
		metrics.Rejected.WithLabelValues("read_only").Inc()
		s.sendTo(c, errorMessage(ErrReadOnly))
		return
	}

	if err := s.apply(c, msg); err != nil {
		metrics.Rejected.WithLabelValues("invalid").Inc()
		s.log.Debug("message rejected", "type", msg.Type, "client", c.ID, "error", err)
		s.sendTo(c, errorMessage(err))
	} else {
		metrics.Messages.WithLabelValues(msg.Type).Inc()
	}
	s.flush(c)
}

func (s *Session) apply(c *Client, msg Message) error {
	e := s.editor
	switch msg.Type {
	case MsgCommand:
		cmd, err := editor.ParseCommand(msg.Action, msg.Value)
		if err != nil {
			return err
		}
		return e.Exec(cmd)

	case MsgText:
		e.InsertText(msg.Text)

	case MsgPaste:
		e.Paste(msg.Text)

	case MsgKey:
		_, hadDraft := e.PendingLink()
		e.KeyDown(msg.KeyEvent)
		if draft, ok := e.PendingLink(); ok && !hadDraft {
			s.sendLinkDraft(c, draft)
		}

	case MsgSelect:
		if msg.Anchor == nil {
			e.Blur()
			return nil
		}
		sel := editor.Selection{Anchor: *msg.Anchor, Focus: *msg.Anchor}
		if msg.Focus != nil {
			sel.Focus = *msg.Focus
		}
		e.Select(sel)

	case MsgFocus:
		e.Focus()

	case MsgBlur:
		e.Blur()

	case MsgLinkBegin:
		draft, err := e.BeginLink()
		if err != nil {
			return err
		}
		s.sendLinkDraft(c, draft)

	case MsgLink:
		return e.ConfirmLink(msg.Text, msg.URL)

	case MsgLinkCancel:
		e.CancelLink()

	case MsgImageURL:
		return e.InsertImageURL(msg.URL, msg.AltText)

	case MsgImageFile:
		return s.beginUpload(c, msg)

	case MsgResize:
		return s.applyResize(msg)

	case MsgSave:
		s.save(c)

	default:
		return ErrUnknown
	}
	return nil
}

func (s *Session) applyResize(msg Message) error {
	switch msg.Phase {
	case ResizeStart:
		r, err := s.editor.BeginResize(msg.Position, msg.Corner, msg.Point, msg.Box)
		if err != nil {
			return err
		}
		s.resize = r
	case ResizeMove:
		if s.resize == nil {
			return editor.ErrNoImage
		}
		s.resize.Move(msg.Point)
	case ResizeEnd:
		if s.resize == nil {
			return editor.ErrNoImage
		}
		s.resize.Move(msg.Point)
		s.resize.End()
		s.resize = nil
	default:
		return editor.ErrInvalidCommand
	}
	return nil
}

func (s *Session) beginUpload(c *Client, msg Message) error {
	if s.images == nil {
		return editor.ErrNoImageStore
	}
	f, err := msg.File()
	if err != nil {
		return err
	}
	pending, err := s.editor.BeginImageUpload(f)
	if err != nil {
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()
		src, err := s.images.Upload(ctx, pending.File)
		select {
		case s.uploads <- uploadResult{client: c, pending: pending, src: src, err: err}:
		case <-s.ctx.Done():
		}
	}()
	return nil
}

func (s *Session) finishUpload(res uploadResult) {
	err := s.editor.FinishImageUpload(res.pending, res.src, res.err)
	if err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		s.sendTo(res.client, errorMessage(err))
	} else {
		metrics.Uploads.WithLabelValues("ok").Inc()
	}
	s.flush(res.client)
}

// flush sends whatever the last event changed: content operations to every
// client, state to every client.
func (s *Session) flush(from *Client) {
	content := s.editor.Content()
	if content != s.content {
		ops := Diff(s.content, content)
		s.content = content
		s.version++
		s.dirty = true
		s.broadcast(Update{
			Type:       OutOperation,
			Operations: ops,
			Version:    s.version,
			ClientID:   from.ID,
			Text:       s.editor.TextContent(),
			Empty:      s.editor.IsEmpty(),
			Timestamp:  time.Now().UnixNano(),
		})
	}
	s.broadcast(StateUpdate{Type: OutState, State: s.editor.State(), Selection: s.selection()})
}

func (s *Session) selection() *editor.Selection {
	if sel, ok := s.editor.Selection(); ok {
		return &sel
	}
	return nil
}

// save writes the current markup and text. c, when set, is told the result.
func (s *Session) save(c *Client) {
	content, text := s.editor.Content(), s.editor.TextContent()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	doc, err := s.store.UpdateDocument(ctx, s.DocumentID, &db.DocumentUpdate{Content: &content, Text: &text})
	if err != nil {
		s.log.Error("save document", "document", s.DocumentID, "error", err)
		if c != nil {
			s.sendTo(c, errorMessage(errors.New("failed to save document")))
		}
		return
	}
	s.dirty = false
	if c != nil {
		s.sendTo(c, map[string]any{"type": OutSaved, "version": doc.Version, "updated_at": doc.UpdatedAt})
	}
}

func (s *Session) sendSnapshot(c *Client) {
	s.sendTo(c, Snapshot{
		Type:        OutSnapshot,
		ID:          s.ID,
		DocumentID:  s.DocumentID,
		Title:       s.Title,
		Content:     s.content,
		Editable:    s.editor.EditableContent(),
		Text:        s.editor.TextContent(),
		Placeholder: s.editor.Placeholder(),
		Selection:   s.selection(),
		State:       s.editor.State(),
		Users:       s.Users(),
		Version:     s.version,
		Role:        c.Role,
	})
}

func (s *Session) sendLinkDraft(c *Client, draft editor.LinkDraft) {
	s.sendTo(c, map[string]string{"type": OutLink, "text": draft.Text, "url": draft.URL})
}

func (s *Session) broadcastUser(kind string, c *Client) {
	s.broadcast(map[string]any{
		"type":     kind,
		"id":       c.ID,
		"username": c.Username,
		"role":     c.Role,
	})
}

// sendTo queues v for c, dropping it when the client is slow.
func (s *Session) sendTo(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode message", "error", err)
		return
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if _, ok := s.clients[c.ID]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		s.log.Warn("dropping message for slow client", "client", c.ID)
	}
}

// broadcast queues v for every client. Clients whose buffer is full are
// disconnected.
func (s *Session) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode message", "error", err)
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for id, client := range s.clients {
		select {
		case client.Send <- data:
		default:
			close(client.Send)
			delete(s.clients, id)
			metrics.Clients.Dec()
			s.log.Warn("disconnecting slow client", "client", id)
		}
	}
}
