package transport

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// StreamOpener dials websocket event streams on the dashboard backend. The
// auth token travels as a ?token= query parameter because the browser-side
// stream transport cannot set per-request headers, and the backend accepts
// the query form for that reason.
type StreamOpener struct {
	baseURL string // ws:// or wss://
	token   string
}

// NewStreamOpener creates an opener for the given websocket base URL
// (e.g. "ws://127.0.0.1:4173").
func NewStreamOpener(baseURL, token string) *StreamOpener {
	return &StreamOpener{baseURL: baseURL, token: token}
}

// Open dials a single stream at path. It does not retry; that is the
// supervisor's job. The returned stream keeps the connection alive with
// pings until closed.
func (o *StreamOpener) Open(ctx context.Context, path string) (*WSStream, error) {
	target := o.baseURL + path
	if o.token != "" {
		target += "?token=" + url.QueryEscape(o.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}

	pingCtx, pingCancel := context.WithCancel(context.Background())
	s := &WSStream{conn: conn, pingCancel: pingCancel}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	go s.pingLoop(pingCtx)

	return s, nil
}

// WSStream is one open push connection. Frames are newline-delimited JSON
// payloads; a single websocket message may carry several frames.
type WSStream struct {
	conn       *websocket.Conn
	pingCancel context.CancelFunc
	pending    [][]byte
}

// Recv blocks until the next frame arrives and returns its payload. Recv is
// intended for a single reader goroutine.
func (s *WSStream) Recv() ([]byte, error) {
	for len(s.pending) == 0 {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		for _, frame := range bytes.Split(data, []byte("\n")) {
			frame = bytes.TrimSpace(frame)
			if len(frame) > 0 {
				s.pending = append(s.pending, frame)
			}
		}
	}

	frame := s.pending[0]
	s.pending = s.pending[1:]
	return frame, nil
}

// Close tears the connection down. Safe to call more than once.
func (s *WSStream) Close() error {
	s.pingCancel()
	return s.conn.Close()
}

// pingLoop sends periodic pings so intermediaries keep the connection open.
// It exits when the stream is closed or a write fails.
func (s *WSStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// DeriveStreamBase converts an HTTP base URL to its websocket counterpart,
// e.g. "http://host:port" → "ws://host:port".
func DeriveStreamBase(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return "ws://127.0.0.1:4173"
	}
	scheme := "ws"
	if strings.HasPrefix(u.Scheme, "https") {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
