// Package authoritytest provides an in-process document authority speaking
// the collabtext wire protocol, for use in tests.
//
// On connect it sends a snapshot. Each accepted edit is answered with an ack
// carrying the new text and version, and every other editor of the document
// receives a doc.update. Edits it cannot apply are answered with a nack.
package authoritytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"collabtext/pkg/diff"
)

// Options change how the authority answers.
type Options struct {
	// AckWithoutText makes acks omit the document text.
	AckWithoutText bool

	// RejectEdits makes every edit fail with this nack reason.
	RejectEdits string
}

// Server is a running authority.
type Server struct {
	URL string

	opts     Options
	http     *httptest.Server
	upgrader websocket.Upgrader

	mu   sync.Mutex
	docs map[string]*document
}

type document struct {
	id       string
	title    string
	text     string
	version  int
	hub      *hub
	received []json.RawMessage
}

// NewServer starts an authority listening on a local port.
func NewServer(opts Options) *Server {
	s := &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		docs: map[string]*document{},
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/v1/docs", s.handleCreate).Methods(http.MethodPost)
	router.HandleFunc("/v1/docs/{id}", s.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/v1/ws/docs/{id}", s.handleConnection)

	s.http = httptest.NewServer(router)
	s.URL = s.http.URL
	return s
}

// Close disconnects every editor and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	for _, doc := range s.docs {
		close(doc.hub.quit)
	}
	s.docs = map[string]*document{}
	s.mu.Unlock()
	s.http.Close()
}

// CreateDocument adds a document with the given initial text and returns its
// identifier.
func (s *Server) CreateDocument(title, text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.getOrCreateLocked(uuid.NewString())
	doc.title = title
	doc.text = text
	return doc.id
}

// Text returns the authoritative text of a document.
func (s *Server) Text(docID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[docID]; ok {
		return doc.text
	}
	return ""
}

// Received returns every message editors sent for a document, in arrival
// order.
func (s *Server) Received(docID string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[docID]; ok {
		return append([]json.RawMessage(nil), doc.received...)
	}
	return nil
}

// Push sends msg, JSON encoded, to every editor of a document.
func (s *Server) Push(docID string, msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	doc := s.getOrCreateLocked(docID)
	s.mu.Unlock()
	doc.hub.sendOthers(nil, payload)
}

// SetText replaces a document's text and broadcasts it as a doc.update, the
// way an edit from an editor outside the test would arrive.
func (s *Server) SetText(docID, text string) {
	s.mu.Lock()
	doc := s.getOrCreateLocked(docID)
	doc.text = text
	doc.version++
	update := map[string]interface{}{"type": "doc.update", "version": doc.version, "text": doc.text}
	s.mu.Unlock()
	s.Push(docID, update)
}

func (s *Server) getOrCreateLocked(id string) *document {
	doc, ok := s.docs[id]
	if !ok {
		doc = &document{id: id, title: "Untitled", hub: newHub()}
		s.docs[id] = doc
		go doc.hub.run()
	}
	return doc
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	if req.Title == "" {
		req.Title = "Untitled"
	}
	id := s.CreateDocument(req.Title, "")
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "title": req.Title})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	doc := s.getOrCreateLocked(id)
	resp := map[string]interface{}{"id": doc.id, "text": doc.text, "version": doc.version}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]
	log.WithField("doc", docID).Debug("New connection for document")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Upgrade failed")
		return
	}

	s.mu.Lock()
	doc := s.getOrCreateLocked(docID)
	snapshot := mustMarshal(map[string]interface{}{
		"type": "snapshot", "version": doc.version, "text": doc.text,
	})
	s.mu.Unlock()

	c := &client{conn: ws, send: make(chan []byte, 256)}
	if !doc.hub.join(c) {
		ws.Close()
		return
	}
	go c.writePump()
	doc.hub.sendTo(c, snapshot)

	defer func() {
		doc.hub.leave(c)
		ws.Close()
	}()
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			log.WithError(err).Debug("Editor disconnected")
			return
		}
		reply, others := s.apply(doc, message)
		if reply != nil {
			doc.hub.sendTo(c, reply)
		}
		if others != nil {
			doc.hub.sendOthers(c, others)
		}
	}
}

type editMessage struct {
	Type   string          `json:"type"`
	Index  *int            `json:"index"`
	Length *int            `json:"length"`
	Text   *string         `json:"text"`
	Data   json.RawMessage `json:"data"`
	Ts     json.RawMessage `json:"ts"`
}

// apply handles one message from an editor and returns the reply to the
// sender and the message for everyone else.
func (s *Server) apply(doc *document, message []byte) (reply, others []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.received = append(doc.received, append(json.RawMessage(nil), message...))

	var msg editMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return nack("invalid_json"), nil
	}

	var op diff.Op
	switch msg.Type {
	case "edit.insert":
		if msg.Index == nil || msg.Text == nil {
			return nack("bad_insert_args"), nil
		}
		op = diff.Insert{Index: *msg.Index, Text: *msg.Text}
	case "edit.delete":
		if msg.Index == nil || msg.Length == nil {
			return nack("bad_delete_args"), nil
		}
		op = diff.Delete{Index: *msg.Index, Length: *msg.Length}
	case "cursor.update":
		return nil, mustMarshal(map[string]interface{}{
			"type": "presence.cursor", "data": msg.Data, "ts": msg.Ts,
		})
	default:
		return nack("unknown_type"), nil
	}

	if s.opts.RejectEdits != "" {
		return nack(s.opts.RejectEdits), nil
	}
	text, err := op.Apply(doc.text)
	if err != nil {
		return nack("out_of_bounds"), nil
	}
	doc.text = text
	doc.version++

	ack := map[string]interface{}{"type": "ack", "version": doc.version}
	if !s.opts.AckWithoutText {
		ack["text"] = doc.text
	}
	update := map[string]interface{}{"type": "doc.update", "version": doc.version, "text": doc.text}
	return mustMarshal(ack), mustMarshal(update)
}

func nack(reason string) []byte {
	return mustMarshal(map[string]string{"type": "nack", "reason": reason})
}

func mustMarshal(v interface{}) []byte {
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return buf
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
