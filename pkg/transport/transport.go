// Package transport opens the persistent per-document connection to the
// authority.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"collabtext/pkg/errors"
)

// Conn is a message-oriented bidirectional connection. ReadMessage and
// WriteMessage may be called from separate goroutines, but each from at most
// one goroutine at a time.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Settings tune the websocket transport.
type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadBufferSize   int
	WriteBufferSize  int
	Header           http.Header
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
}

// WebsocketDialer dials documents over websockets.
type WebsocketDialer struct {
	settings Settings
	dialer   *websocket.Dialer
}

// NewWebsocketDialer creates a dialer with the given settings.
func NewWebsocketDialer(settings Settings) *WebsocketDialer {
	return &WebsocketDialer{
		settings: settings,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: settings.HandshakeTimeout,
			ReadBufferSize:   settings.ReadBufferSize,
			WriteBufferSize:  settings.WriteBufferSize,
		},
	}
}

// Dial connects to url. The context bounds the handshake only.
func (d *WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, url, d.settings.Header)
	if err != nil {
		if resp != nil {
			return nil, errors.WithContext(err, "handshake failed with status "+resp.Status)
		}
		return nil, err
	}
	return &wsConn{ws: ws, writeTimeout: d.settings.WriteTimeout}, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

// ReadMessage returns the next text or binary message. A normal close from
// the peer is reported as ErrClosed.
func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			return nil, err
		}
		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			return message, nil
		}
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	deadline := time.Now().Add(time.Second)
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}

// ErrClosed is returned by ReadMessage after the peer closed the connection
// cleanly.
var ErrClosed = errors.New("connection closed by peer")
