package authoritytest

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, s *Server, docID string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/v1/ws/docs/" + docID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func read(t *testing.T, ws *websocket.Conn) map[string]interface{} {
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestEditFlow(t *testing.T) {
	s := NewServer(Options{})
	defer s.Close()
	docID := s.CreateDocument("Notes", "hello")

	alice := dial(t, s, docID)
	assert.Equal(t, map[string]interface{}{"type": "snapshot", "version": 0.0, "text": "hello"}, read(t, alice))

	bob := dial(t, s, docID)
	assert.Equal(t, "snapshot", read(t, bob)["type"])

	require.NoError(t, alice.WriteJSON(map[string]interface{}{"type": "edit.insert", "index": 5, "text": " world"}))
	assert.Equal(t, map[string]interface{}{"type": "ack", "version": 1.0, "text": "hello world"}, read(t, alice))
	assert.Equal(t, map[string]interface{}{"type": "doc.update", "version": 1.0, "text": "hello world"}, read(t, bob))

	require.NoError(t, bob.WriteJSON(map[string]interface{}{"type": "edit.delete", "index": 0, "length": 6}))
	assert.Equal(t, "world", read(t, bob)["text"])
	assert.Equal(t, "world", read(t, alice)["text"])
	assert.Equal(t, "world", s.Text(docID))
	assert.Len(t, s.Received(docID), 2)
}

func TestNacks(t *testing.T) {
	s := NewServer(Options{})
	defer s.Close()
	docID := s.CreateDocument("", "abc")
	ws := dial(t, s, docID)
	read(t, ws)

	for _, test := range []struct {
		payload string
		reason  string
	}{
		{payload: `not json`, reason: "invalid_json"},
		{payload: `{"type": "edit.insert", "index": 1}`, reason: "bad_insert_args"},
		{payload: `{"type": "edit.delete", "index": 1}`, reason: "bad_delete_args"},
		{payload: `{"type": "edit.delete", "index": 1, "length": 9}`, reason: "out_of_bounds"},
		{payload: `{"type": "op.submit"}`, reason: "unknown_type"},
	} {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(test.payload)))
		assert.Equal(t, map[string]interface{}{"type": "nack", "reason": test.reason}, read(t, ws), test.payload)
	}
	assert.Equal(t, "abc", s.Text(docID))
}

func TestOptions(t *testing.T) {
	s := NewServer(Options{AckWithoutText: true})
	defer s.Close()
	docID := s.CreateDocument("", "")
	ws := dial(t, s, docID)
	read(t, ws)

	require.NoError(t, ws.WriteJSON(map[string]interface{}{"type": "edit.insert", "index": 0, "text": "a"}))
	assert.Equal(t, map[string]interface{}{"type": "ack", "version": 1.0}, read(t, ws))

	rejecting := NewServer(Options{RejectEdits: "read_only"})
	defer rejecting.Close()
	ws = dial(t, rejecting, "doc")
	read(t, ws)
	require.NoError(t, ws.WriteJSON(map[string]interface{}{"type": "edit.insert", "index": 0, "text": "a"}))
	assert.Equal(t, "read_only", read(t, ws)["reason"])
}

func TestPresenceAndPush(t *testing.T) {
	s := NewServer(Options{})
	defer s.Close()
	alice := dial(t, s, "doc")
	read(t, alice)
	bob := dial(t, s, "doc")
	read(t, bob)

	require.NoError(t, alice.WriteJSON(map[string]interface{}{
		"type": "cursor.update", "data": map[string]int{"index": 2}, "ts": 5,
	}))
	assert.Equal(t, map[string]interface{}{
		"type": "presence.cursor", "data": map[string]interface{}{"index": 2.0}, "ts": 5.0,
	}, read(t, bob))

	s.SetText("doc", "pushed")
	assert.Equal(t, "pushed", read(t, alice)["text"])
	assert.Equal(t, "pushed", read(t, bob)["text"])
}

func TestHTTP(t *testing.T) {
	s := NewServer(Options{})
	defer s.Close()

	resp, err := http.Post(s.URL+"/v1/docs", "application/json", strings.NewReader(`{"title": "Plan"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Plan", created["title"])
	assert.NotEmpty(t, created["id"])

	resp, err = http.Get(s.URL + "/v1/docs/" + created["id"])
	require.NoError(t, err)
	defer resp.Body.Close()
	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, map[string]interface{}{"id": created["id"], "text": "", "version": 0.0}, got)
}
