package realtime

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Client operations carried in a Frame.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpTrack       = "track"
	OpUntrack     = "untrack"
	OpSend        = "send"
)

// Frame is a client request to the relay.
type Frame struct {
	Op      string `msgpack:"op"`
	Topic   string `msgpack:"topic"`
	Key     string `msgpack:"key,omitempty"`
	Event   string `msgpack:"event,omitempty"`
	Payload []byte `msgpack:"payload,omitempty"`
}

// ServerConfig tunes the relay.
type ServerConfig struct {
	InboxSize    int
	WriteTimeout time.Duration
	ReadLimit    int64
}

// Server relays a Hub over websockets. Each connection may hold channels
// on any number of topics; closing the connection leaves them all.
type Server struct {
	hub      *Hub
	cfg      ServerConfig
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*session
}

// NewServer wraps hub.
func NewServer(hub *Hub, cfg ServerConfig) *Server {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 64 << 10
	}
	return &Server{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[string]*session),
	}
}

// Hub returns the relayed hub.
func (s *Server) Hub() *Hub { return s.hub }

// Conns returns the number of open connections.
func (s *Server) Conns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("upgrade_failed", "error", err)
		return
	}
	conn.SetReadLimit(s.cfg.ReadLimit)

	sess := &session{
		id:       uuid.NewString(),
		server:   s,
		conn:     conn,
		channels: make(map[string]*hubChannel),
		done:     make(chan struct{}),
	}
	s.mu.Lock()
	s.conns[sess.id] = sess
	s.mu.Unlock()
	slog.Info("relay_connected", "conn", sess.id, "remote", r.RemoteAddr)

	sess.readLoop()

	s.mu.Lock()
	delete(s.conns, sess.id)
	s.mu.Unlock()
	sess.close()
	slog.Info("relay_disconnected", "conn", sess.id)
}

type session struct {
	id     string
	server *Server
	conn   *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	channels map[string]*hubChannel
	done     chan struct{}
	wg       sync.WaitGroup
}

func (s *session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("relay_read", "conn", s.id, "error", err)
			}
			return
		}
		var f Frame
		if err := msgpack.Unmarshal(data, &f); err != nil {
			slog.Warn("relay_bad_frame", "conn", s.id, "error", err)
			continue
		}
		if err := s.handle(f); err != nil {
			slog.Debug("relay_op_failed", "conn", s.id, "op", f.Op, "topic", f.Topic, "error", err)
		}
	}
}

func (s *session) handle(f Frame) error {
	switch f.Op {
	case OpSubscribe:
		s.mu.Lock()
		c, ok := s.channels[f.Topic]
		if !ok {
			c = s.server.hub.channel(f.Topic, f.Key)
			s.channels[f.Topic] = c
			s.wg.Add(1)
			go s.forward(c)
		}
		s.mu.Unlock()
		return c.Subscribe()
	case OpUnsubscribe:
		s.mu.Lock()
		c := s.channels[f.Topic]
		delete(s.channels, f.Topic)
		s.mu.Unlock()
		if c == nil {
			return nil
		}
		return c.Unsubscribe()
	}

	s.mu.Lock()
	c := s.channels[f.Topic]
	s.mu.Unlock()
	if c == nil {
		return ErrNotSubscribed
	}
	switch f.Op {
	case OpTrack:
		return s.server.hub.track(c, f.Payload)
	case OpUntrack:
		return c.Untrack()
	case OpSend:
		return s.server.hub.send(c, f.Event, f.Payload)
	default:
		return errors.New("realtime: unknown op " + f.Op)
	}
}

// forward copies a channel's inbox to the socket until the session ends.
func (s *session) forward(c *hubChannel) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case m := <-c.inbox:
			if err := s.write(m); err != nil {
				slog.Debug("relay_write", "conn", s.id, "error", err)
				return
			}
		}
	}
}

func (s *session) write(m Message) error {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.server.cfg.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (s *session) close() {
	s.mu.Lock()
	channels := s.channels
	s.channels = nil
	s.mu.Unlock()
	for _, c := range channels {
		_ = c.Unsubscribe()
	}
	close(s.done)
	s.wg.Wait()
	_ = s.conn.Close()
}
