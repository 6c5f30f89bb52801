// Package live serves the current record collections over WebSocket.
//
// Clients connected to /ws receive a snapshot message on connect and a
// collections message after every change the sync coordinator reports.
// /collections returns the same snapshot as plain JSON.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	dtsync "github.com/denttrack/denttrack/internal/sync"
	"go.uber.org/zap"
)

// MessageType defines the type of a live message.
type MessageType string

const (
	// MessageTypeSnapshot is sent once to each client on connect.
	MessageTypeSnapshot MessageType = "snapshot"

	// MessageTypeCollections is broadcast after every change.
	MessageTypeCollections MessageType = "collections"
)

// Message is the envelope written to clients.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Snapshot is the payload of snapshot and collections messages.
type Snapshot struct {
	dtsync.Collections
	Syncing bool   `json:"syncing"`
	Session bool   `json:"session"`
	Change  string `json:"change,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Source provides the state to publish. *sync.Coordinator satisfies it.
type Source interface {
	Collections() dtsync.Collections
	IsSyncing() bool
	HasSession() bool
}

// Server manages WebSocket connections and broadcasts messages.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	source   Source

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// Config holds server configuration.
type Config struct {
	// Host to bind (default: 127.0.0.1).
	Host string

	// Port to listen on. Zero picks a free port.
	Port int

	// Buffer is the broadcast queue length (default: 100).
	Buffer int

	Logger *zap.Logger
}

// NewServer creates a live server publishing source.
func NewServer(source Source, cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 100
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		source:    source,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, cfg.Buffer),
		ctx:       ctx,
		cancel:    cancel,
		logger:    cfg.Logger,
	}
}

// Start begins serving HTTP and WebSocket requests.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/collections", s.handleCollections)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("live server listening", zap.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("live server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop closes every client and shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping live server")
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()
	return nil
}

// Broadcast queues msg for every client. A full queue drops the message.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Warn("broadcast channel full, dropping message", zap.String("type", string(msg.Type)))
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("failed to marshal message", zap.Error(err))
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := s.write(conn, data); err != nil {
					s.logger.Debug("failed to send to client", zap.Error(err))
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// snapshotMessage builds a message of type t from the current source state.
func (s *Server) snapshotMessage(t MessageType, change dtsync.Change) (Message, error) {
	snap := Snapshot{
		Collections: s.source.Collections(),
		Syncing:     s.source.IsSyncing(),
		Session:     s.source.HasSession(),
		ID:          change.ID,
	}
	if change.Kind != 0 {
		snap.Change = change.Kind.String()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return Message{Type: t, Timestamp: time.Now(), Data: data}, nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	count := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Debug("client connected", zap.Int("clients", count))

	msg, err := s.snapshotMessage(MessageTypeSnapshot, dtsync.Change{})
	if err == nil {
		var data []byte
		data, err = json.Marshal(msg)
		if err == nil {
			err = s.write(conn, data)
		}
	}
	if err != nil {
		s.logger.Warn("failed to send snapshot", zap.Error(err))
		s.removeClient(conn)
		return
	}

	go s.readLoop(conn)
}

// readLoop discards client messages until the connection closes.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, ok := s.clients[conn]; !ok {
		s.clientsMu.Unlock()
		return
	}
	delete(s.clients, conn)
	count := len(s.clients)
	s.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Debug("client disconnected", zap.Int("clients", count))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
		"syncing": s.source.IsSyncing(),
		"session": s.source.HasSession(),
	})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Snapshot{
		Collections: s.source.Collections(),
		Syncing:     s.source.IsSyncing(),
		Session:     s.source.HasSession(),
	})
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
