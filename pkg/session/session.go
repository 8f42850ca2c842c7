// Package session keeps a local text buffer in sync with a remote document.
//
// A Session owns at most one transport to the authority. User edits to the
// buffer are turned into insert and delete operations and sent as they
// happen; the session does not wait for the authority before treating its
// own edit as final. Snapshots, updates and acks carrying text overwrite the
// buffer, and the change notification caused by that overwrite is never
// mistaken for a user edit.
//
// All session state is owned by the goroutine running Run. Every other entry
// point only queues an event for it, so none of them block.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"collabtext/pkg/buffer"
	"collabtext/pkg/diff"
	"collabtext/pkg/errors"
	"collabtext/pkg/observe"
	"collabtext/pkg/protocol"
	"collabtext/pkg/transport"
)

// DefaultSendBufferSize is the number of outbound messages that may wait for
// the transport before further edits are dropped.
const DefaultSendBufferSize = 256

// ErrEmptyDocumentID is returned by RequestConnect when no document was named.
var ErrEmptyDocumentID = errors.New("document identifier is empty")

// Buffer is the text surface a session keeps in sync.
type Buffer interface {
	Set(text string, origin buffer.Origin)
	Subscribe(observer buffer.Observer) (unsubscribe func())
}

// Options configure a session.
type Options struct {
	// Origin is the address of the authority, e.g. "https://collab.example.com".
	Origin string

	// Dialer opens document transports. Defaults to a websocket dialer.
	Dialer transport.Dialer

	// Sink receives observability events. Defaults to discarding them.
	Sink observe.Sink

	// Clock stamps events. Defaults to the real clock.
	Clock clockwork.Clock

	// NackPolicy decides what happens after a rejected edit.
	NackPolicy NackPolicy

	// SendBufferSize bounds the outbound queue of a transport.
	SendBufferSize int
}

// Session synchronizes one buffer with one document at a time.
type Session struct {
	id          string
	opts        Options
	buf         Buffer
	unsubscribe func()
	events      *queue
	ctx         context.Context

	// Owned by the event loop.
	state      State
	docID      string
	generation uint64
	link       *link
	lastKnown  string
	version    *int
	suppressed int

	statusMu sync.Mutex
	status   Status
}

// link is one transport to the authority. A link is current while its
// generation equals the session's; events from any other generation are
// discarded.
type link struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	conn       transport.Conn
	send       chan []byte
}

type event interface{}

type connectRequest struct {
	docID string
}

type dialed struct {
	generation uint64
	conn       transport.Conn
}

type received struct {
	generation uint64
	data       []byte
}

type closed struct {
	generation uint64
	err        error
}

// bufferChanged is a change to the buffer. Changes delivered by the Buffer
// subscription carry a reliable origin; reported changes come from
// OnLocalBufferChanged and only the suppression window tells them apart from
// the echo of an authoritative write.
type bufferChanged struct {
	change   buffer.Change
	reported bool
}

type clearSuppression struct{}

type cursorMoved struct {
	index int
}

type barrier struct {
	done chan struct{}
}

// New creates a session for buf. The session starts Disconnected and does
// nothing until Run is called.
func New(buf Buffer, opts Options) *Session {
	if opts.Dialer == nil {
		opts.Dialer = transport.NewWebsocketDialer(transport.DefaultSettings())
	}
	if opts.Sink == nil {
		opts.Sink = observe.Discard
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.NackPolicy == "" {
		opts.NackPolicy = NackIgnore
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = DefaultSendBufferSize
	}

	s := &Session{
		id:     uuid.NewString(),
		opts:   opts,
		buf:    buf,
		events: newQueue(),
	}
	s.unsubscribe = buf.Subscribe(func(change buffer.Change) {
		s.events.push(bufferChanged{change: change})
	})
	s.publishStatus()
	return s
}

// ID identifies this session in events and logs.
func (s *Session) ID() string {
	return s.id
}

// RequestConnect switches the session to docID. Any existing transport is
// discarded first. An empty identifier is rejected without touching the
// network.
func (s *Session) RequestConnect(docID string) error {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return ErrEmptyDocumentID
	}
	s.events.push(connectRequest{docID: docID})
	return nil
}

// OnLocalBufferChanged reports that the user changed the buffer to text. It
// is for surfaces that report edits themselves instead of writing through
// the Buffer.
func (s *Session) OnLocalBufferChanged(text string) {
	s.events.push(bufferChanged{change: buffer.Change{Text: text, Origin: buffer.OriginUser}, reported: true})
}

// UpdateCursor shares the local caret position with the other editors.
func (s *Session) UpdateCursor(index int) {
	s.events.push(cursorMoved{index: index})
}

// Status returns the session's current status.
func (s *Session) Status() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	status := s.status
	if status.Version != nil {
		version := *status.Version
		status.Version = &version
	}
	return status
}

// Flush waits until every event queued before the call has been handled.
func (s *Session) Flush(ctx context.Context) error {
	done := make(chan struct{})
	s.events.push(barrier{done: done})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles events until ctx is cancelled, then closes the transport. It
// must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer func() {
		s.unsubscribe()
		s.teardown()
		s.state = Disconnected
		s.publishStatus()
	}()

	for {
		for {
			e, ok := s.events.pop()
			if !ok {
				break
			}
			s.handle(e)
			s.publishStatus()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.events.signal:
		}
	}
}

func (s *Session) handle(e event) {
	switch e := e.(type) {
	case connectRequest:
		s.connect(e.docID)
	case dialed:
		s.handleDialed(e)
	case received:
		if e.generation != s.generation || s.link == nil {
			log.WithField("generation", e.generation).Debug("Discarding message from a superseded transport")
			return
		}
		s.handleMessage(e.data)
	case closed:
		s.handleClosed(e)
	case bufferChanged:
		s.handleBufferChanged(e)
	case clearSuppression:
		s.suppressed--
	case cursorMoved:
		s.handleCursor(e.index)
	case barrier:
		close(e.done)
	}
}

func (s *Session) connect(docID string) {
	s.teardown()
	s.generation++
	s.docID = docID
	s.lastKnown = ""
	s.version = nil

	url, err := transport.EndpointURL(s.opts.Origin, docID)
	if err != nil {
		s.setState(Disconnected)
		s.observe(observe.Event{Kind: observe.KindTransportError, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	l := &link{generation: s.generation, ctx: ctx, cancel: cancel}
	s.link = l
	s.setState(Connecting)
	go s.dial(l, url)
}

// dial runs on its own goroutine and becomes the read pump once connected.
func (s *Session) dial(l *link, url string) {
	conn, err := s.opts.Dialer.Dial(l.ctx, url)
	if err != nil {
		s.events.push(closed{generation: l.generation, err: errors.WithContext(err, "dial "+url)})
		return
	}
	s.events.push(dialed{generation: l.generation, conn: conn})

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.events.push(closed{generation: l.generation, err: err})
			return
		}
		s.events.push(received{generation: l.generation, data: data})
	}
}

func (s *Session) writePump(l *link) {
	for {
		select {
		case <-l.ctx.Done():
			return
		case msg := <-l.send:
			if err := l.conn.WriteMessage(msg); err != nil {
				s.events.push(closed{generation: l.generation, err: errors.WithContext(err, "write")})
				return
			}
		}
	}
}

func (s *Session) handleDialed(e dialed) {
	if e.generation != s.generation || s.link == nil {
		e.conn.Close()
		return
	}
	s.link.conn = e.conn
	s.link.send = make(chan []byte, s.opts.SendBufferSize)
	go s.writePump(s.link)
	s.setState(Connected)
}

func (s *Session) handleClosed(e closed) {
	if e.generation != s.generation || s.link == nil {
		return
	}
	s.teardown()
	s.setState(Disconnected)

	ev := observe.Event{Kind: observe.KindTransportError}
	if e.err != nil {
		ev.Error = e.err.Error()
	}
	s.observe(ev)
}

// teardown discards the current transport, if any.
func (s *Session) teardown() {
	if s.link == nil {
		return
	}
	s.link.cancel()
	if s.link.conn != nil {
		s.link.conn.Close()
	}
	s.link = nil
}

func (s *Session) handleMessage(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.WithError(err).WithField("doc", s.docID).Debug("Ignoring malformed message")
		return
	}

	switch msg.Type {
	case protocol.TypeSnapshot:
		s.applyAuthoritative(msg.TextOrEmpty())
		s.version = msg.Version
		s.observe(observe.Event{Kind: observe.KindSnapshot, Version: msg.Version})
	case protocol.TypeUpdate:
		s.applyAuthoritative(msg.TextOrEmpty())
		if msg.Version != nil {
			s.version = msg.Version
		}
		s.observe(observe.Event{Kind: observe.KindUpdate, Version: msg.Version})
	case protocol.TypeAck:
		// Without text the optimistic local commit already matches.
		if msg.Text != nil {
			s.applyAuthoritative(*msg.Text)
		}
		if msg.Version != nil {
			s.version = msg.Version
		}
		s.observe(observe.Event{Kind: observe.KindAck, Version: msg.Version})
	case protocol.TypeNack:
		s.observe(observe.Event{Kind: observe.KindNack, Reason: msg.Reason, Detail: string(msg.Raw)})
		if s.opts.NackPolicy == NackResync {
			s.observe(observe.Event{Kind: observe.KindResync, Reason: msg.Reason})
			s.connect(s.docID)
		}
	case protocol.TypePresence:
		s.observe(observe.Event{Kind: observe.KindPresence, Detail: string(msg.Data)})
	default:
		log.WithField("type", msg.Type).Debug("Ignoring unknown message type")
	}
}

// applyAuthoritative overwrites the buffer. The write's own change
// notification is queued before the suppression is lifted, so it is handled
// while still suppressed.
func (s *Session) applyAuthoritative(text string) {
	s.suppressed++
	s.buf.Set(text, buffer.OriginNetwork)
	s.lastKnown = text
	s.events.push(clearSuppression{})
}

func (s *Session) handleBufferChanged(e bufferChanged) {
	change := e.change
	if change.Origin == buffer.OriginNetwork {
		return
	}
	if e.reported && s.suppressed > 0 {
		return
	}
	if change.Text == s.lastKnown {
		return
	}

	for _, op := range diff.Extract(s.lastKnown, change.Text) {
		s.sendOp(op)
	}
	// Optimistic: the edit is final locally whether or not it was sent.
	s.lastKnown = change.Text
}

func (s *Session) sendOp(op diff.Op) {
	payload, err := protocol.EncodeOp(op)
	if err != nil {
		log.WithError(err).Warn("Failed to encode edit")
		return
	}
	if !s.send(payload) {
		s.observe(observe.Event{Kind: observe.KindEditDropped, Op: op.String(), State: s.state.String()})
		return
	}
	s.observe(observe.Event{Kind: observe.KindEditSent, Op: op.String()})
}

func (s *Session) handleCursor(index int) {
	payload, err := protocol.EncodeCursor(index, s.opts.Clock.Now().UnixMilli())
	if err != nil {
		log.WithError(err).Warn("Failed to encode cursor update")
		return
	}
	s.send(payload)
}

// send queues payload on the current transport. It reports false if the
// session is not connected or the transport is backed up.
func (s *Session) send(payload []byte) bool {
	if s.state != Connected || s.link == nil || s.link.send == nil {
		return false
	}
	select {
	case s.link.send <- payload:
		return true
	default:
		return false
	}
}

func (s *Session) setState(state State) {
	s.state = state
	s.observe(observe.Event{Kind: observe.KindStateChanged, State: state.String()})
}

func (s *Session) observe(e observe.Event) {
	e.Time = s.opts.Clock.Now()
	e.Session = s.id
	e.DocID = s.docID
	e.Generation = s.generation
	s.opts.Sink.Observe(e)
}

func (s *Session) publishStatus() {
	var version *int
	if s.version != nil {
		v := *s.version
		version = &v
	}
	s.statusMu.Lock()
	s.status = Status{
		State:      s.state,
		DocID:      s.docID,
		Generation: s.generation,
		Version:    version,
		LastKnown:  s.lastKnown,
	}
	s.statusMu.Unlock()
}
