package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/reflow-dev/reflow/pkg/dom"
	"github.com/reflow-dev/reflow/pkg/state"
)

// Session is one live client connection. It owns an isolated state store,
// a live element tree, and the renderer keeping the two in sync; mutations
// of the tree stream to the client as patch frames.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	conn   *websocket.Conn
	config *Config
	logger *slog.Logger

	store    *state.Store
	doc      *dom.Document
	renderer *dom.Renderer
	root     *dom.Element

	// send is the outbound frame queue drained by WriteLoop.
	send chan []byte

	mu      sync.Mutex
	pending []dom.Patch // patches accumulated since the last flush

	lastActive time.Time
	closeOnce  sync.Once
	done       chan struct{}

	metrics *Metrics
}

// newSession wires a store, document, and renderer for one connection and
// renders the root view into the tree. The patches produced by the initial
// render are the client's first frame.
func (s *Server) newSession(conn *websocket.Conn) (*Session, error) {
	sess := &Session{
		ID:         uuid.NewString(),
		conn:       conn,
		config:     s.config,
		store:      s.storeFactory(),
		send:       make(chan []byte, s.config.SendQueueSize),
		lastActive: time.Now(),
		done:       make(chan struct{}),
		metrics:    s.metrics,
	}
	sess.logger = s.logger.With("session", sess.ID)

	sess.renderer = dom.NewRenderer(sess.store, s.registry,
		dom.WithLogger(sess.logger.With("component", "dom")))
	sess.doc = sess.renderer.Document()
	sess.doc.SetSink(sess.collectPatch)
	// Async resolutions land between inbound frames; push their patches as
	// soon as they apply instead of waiting for the client to speak.
	sess.renderer.SetAsyncNotify(sess.Flush)

	root, err := sess.renderer.Render(s.rootView)
	if err != nil {
		return nil, err
	}
	sess.root = root
	return sess, nil
}

// collectPatch buffers one patch for the next flush.
func (s *Session) collectPatch(p dom.Patch) {
	s.mu.Lock()
	s.pending = append(s.pending, p)
	s.mu.Unlock()
}

// Flush drains buffered patches into a single outbound frame. Called after
// each processed inbound frame, after the initial render, and after each
// async resolution lands, so every tree change reaches the client as one
// coherent patch batch.
func (s *Session) Flush() {
	s.mu.Lock()
	patches := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(patches) == 0 {
		return
	}
	s.enqueue(patchFrame(patches))
	if s.metrics != nil {
		s.metrics.PatchesSent.Add(float64(len(patches)))
	}
}

// enqueue encodes and queues a frame, closing the session when the client
// cannot keep up.
func (s *Session) enqueue(f *Frame) {
	data, err := EncodeFrame(f)
	if err != nil {
		s.logger.Error("frame encode failed", "error", err)
		return
	}
	select {
	case s.send <- data:
	default:
		s.logger.Warn("send queue full, closing slow session")
		s.Close()
	}
}

// ReadLoop reads inbound frames until the connection drops. Each event or
// state write runs to completion and the resulting patches flush as one
// frame before the next message is read.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		s.mu.Lock()
		s.lastActive = time.Now()
		s.mu.Unlock()

		frame, err := DecodeFrame(msg)
		if err != nil {
			s.logger.Error("frame decode error", "error", err)
			s.enqueue(errorFrame("invalid frame"))
			continue
		}

		s.handleFrame(frame)
		s.Flush()
	}
}

func (s *Session) handleFrame(f *Frame) {
	switch f.Type {
	case FrameEvent:
		s.handleEvent(f)
	case FrameSet:
		if f.Path == "" {
			s.enqueue(errorFrame("set frame missing path"))
			return
		}
		s.renderer.Do(func() { s.store.Set(f.Path, f.Value) })
	case FramePing:
		s.enqueue(&Frame{Type: FramePong})
	default:
		s.logger.Warn("unknown frame type", "type", f.Type)
	}
}

// handleEvent routes a client event to the element that registered the
// listener. Handler panics are contained so one bad handler cannot take
// the session down.
func (s *Session) handleEvent(f *Frame) {
	el, ok := s.doc.Lookup(f.Handle)
	if !ok {
		s.logger.Warn("event for unknown element", "handle", f.Handle, "event", f.Event)
		return
	}
	if s.metrics != nil {
		s.metrics.EventsTotal.Inc()
	}

	defer func() {
		if cause := recover(); cause != nil {
			s.logger.Error("event handler panic", "event", f.Event, "cause", cause)
			s.enqueue(errorFrame("handler failed"))
		}
	}()
	// Dispatch under the tree lock: the handler's mutations must not
	// interleave with an async resolution landing on the same tree.
	s.renderer.Do(func() {
		el.Dispatch(dom.Event{Type: f.Event, Value: f.Value})
	})
}

// WriteLoop drains the send queue to the connection, pinging on idle.
// It exits when the session closes.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Error("write error", "error", err)
				s.Close()
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}

		case <-s.done:
			return
		}
	}
}

// Close tears the session down: the element tree is removed (disposing all
// state subscriptions) and the connection closed. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.root != nil {
			s.renderer.Do(func() { s.renderer.Remove(s.root) })
		}
		if s.conn != nil {
			s.conn.Close()
		}
		if s.metrics != nil {
			s.metrics.ActiveSessions.Dec()
		}
		s.logger.Info("session closed")
	})
}

// LastActive reports when the client last sent a frame.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Store exposes the session's state store to application code running in
// component handlers.
func (s *Session) Store() *state.Store { return s.store }
