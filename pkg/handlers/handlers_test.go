package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rich-edit/pkg/db"
	"rich-edit/pkg/editor"
	"rich-edit/pkg/imagestore"
	"rich-edit/pkg/session"
)

type memoryImages struct {
	files []imagestore.File
	err   error
}

func (s *memoryImages) Upload(_ context.Context, f imagestore.File) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.files = append(s.files, f)
	return "https://cdn.test/" + f.Name, nil
}

func newTestServer(t *testing.T, images imagestore.Store) (*httptest.Server, *db.MemoryDocumentStore) {
	t.Helper()
	store := db.NewMemoryDocumentStore()
	sessions := session.NewManager(store, images, editor.Options{})
	t.Cleanup(sessions.Close)

	r := mux.NewRouter()
	NewHandlers(sessions, store, images, nil).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func createDocument(t *testing.T, srv *httptest.Server, title, content string) db.Document {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"title": title, "content": content})
	resp, err := http.Post(srv.URL+"/api/documents", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc db.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	return doc
}

func TestDocumentsAPI(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	doc := createDocument(t, srv, "notes", `<p onclick="x()">Hello <b>world</b><script>alert(1)</script></p>`)
	assert.Equal(t, "notes", doc.Title)
	assert.Equal(t, `<p>Hello <strong>world</strong></p>`, doc.Content)
	assert.Equal(t, "Hello world", doc.Text)

	resp, err := http.Get(srv.URL + "/api/documents/" + doc.ID)
	require.NoError(t, err)
	var got db.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Equal(t, doc.Content, got.Content)

	resp, err = http.Get(srv.URL + "/api/documents")
	require.NoError(t, err)
	var list []db.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	assert.Len(t, list, 1)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/documents/"+doc.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/documents/" + doc.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/documents", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	srv, store := newTestServer(t, nil)
	doc := createDocument(t, srv, "notes", `<p>hi</p>`)

	writer := dial(t, srv, "/ws/s1?document="+doc.ID+"&username=ann")
	snap := readUntil(t, writer, session.OutSnapshot)
	assert.Equal(t, `<p>hi</p>`, snap["content"])
	assert.Equal(t, "editor", snap["role"])

	viewer := dial(t, srv, "/ws/s1?document="+doc.ID+"&role=viewer")
	readUntil(t, viewer, session.OutSnapshot)

	resp, err := http.Get(srv.URL + "/api/sessions/s1/users")
	require.NoError(t, err)
	var users struct {
		Users []session.User `json:"users"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	resp.Body.Close()
	assert.Len(t, users.Users, 2)

	require.NoError(t, writer.WriteJSON(map[string]any{"type": "select", "anchor": map[string]any{"path": []int{0}, "offset": 2}}))
	require.NoError(t, writer.WriteJSON(map[string]any{"type": "text", "text": "!"}))

	op := readUntil(t, viewer, session.OutOperation)
	raw, _ := json.Marshal(op["operations"])
	var ops []session.Operation
	require.NoError(t, json.Unmarshal(raw, &ops))
	content, err := session.Apply(`<p>hi</p>`, ops)
	require.NoError(t, err)
	assert.Equal(t, `<p>hi!</p>`, content)

	require.NoError(t, viewer.WriteJSON(map[string]any{"type": "text", "text": "?"}))
	errMsg := readUntil(t, viewer, session.OutError)
	assert.Equal(t, session.ErrReadOnly.Error(), errMsg["message"])

	require.NoError(t, writer.WriteJSON(map[string]any{"type": "save"}))
	readUntil(t, writer, session.OutSaved)

	saved, err := store.GetDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, `<p>hi!</p>`, saved.Content)
	assert.Equal(t, "hi!", saved.Text)
}

func TestWebSocketUnknownDocument(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/api/sessions/nope/users")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func postImage(t *testing.T, srv *httptest.Server, field, name string, data []byte) (int, uploadResponse) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/upload-image", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestUploadImage(t *testing.T) {
	images := &memoryImages{}
	srv, _ := newTestServer(t, images)

	status, out := postImage(t, srv, "image", "cat.png", pngBytes(t))
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
	assert.Equal(t, "https://cdn.test/cat.png", out.URL)
	assert.Equal(t, out.URL, out.ImageURL)
	require.Len(t, images.files, 1)
	assert.Equal(t, "image/png", http.DetectContentType(images.files[0].Data))

	tests := []struct {
		name   string
		field  string
		file   string
		data   []byte
		status int
	}{
		{"missing field", "file", "cat.png", pngBytes(t), http.StatusBadRequest},
		{"bad extension", "image", "cat.exe", pngBytes(t), http.StatusBadRequest},
		{"not an image", "image", "cat.png", []byte("plain text"), http.StatusBadRequest},
		{"too large", "image", "big.png", append(pngBytes(t), make([]byte, imagestore.MaxFileSize)...), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := postImage(t, srv, tt.field, tt.file, tt.data)
			assert.Equal(t, tt.status, status)
			assert.False(t, out.Success)
			assert.NotEmpty(t, out.Message)
		})
	}
	assert.Len(t, images.files, 1)
}

func TestUploadImageStoreFailure(t *testing.T) {
	srv, _ := newTestServer(t, &memoryImages{err: &imagestore.UploadError{Message: "failed to store image", Err: errors.New("boom")}})

	status, out := postImage(t, srv, "image", "cat.png", pngBytes(t))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, out.Success)
	assert.Equal(t, "failed to store image", out.Message)
}

func TestUploadImageDisabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	status, out := postImage(t, srv, "image", "cat.png", pngBytes(t))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, out.Success)
}
