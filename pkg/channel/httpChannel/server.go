package httpChannel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Layr-Labs/webview-wallet-bridge/pkg/channel"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MaxMessageSize bounds request bodies accepted by the server.
const MaxMessageSize = 1 << 20

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

/*
Server receives channel messages over HTTP.

	POST <path>:
	  - Body is one raw JSON message
	  - 202 once the message is queued; the Handler runs later on a worker
	  - 503 when the queue is full or the server is stopping, nothing queued
	  - 400/413 for empty or oversized bodies
	GET /health:
	  - 200 {"status":"ok"}

The host listens on /bridge/messages for bridge requests, the bridge CLI on
/bridge/results for host replies. Handler errors are logged; the sender has
already been answered.
*/
type Server struct {
	path       string
	handler    channel.Handler
	logger     *zap.Logger
	httpServer *http.Server

	queue   chan []byte
	workers int
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.RWMutex
	listener net.Listener
	stopped  bool
}

type ServerOption func(*Server)

// WithWorkers sets how many handler invocations may run at once.
func WithWorkers(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize bounds the messages accepted but not yet handled.
func WithQueueSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.queue = make(chan []byte, n)
		}
	}
}

// NewServer creates a new server instance and starts its handler workers
func NewServer(port int, path string, handler channel.Handler, logger *zap.Logger, opts ...ServerOption) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		path:    path,
		handler: handler,
		logger:  logger,
		queue:   make(chan []byte, DefaultQueueSize),
		workers: DefaultWorkers,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.HandleFunc(path, s.handleMessage).Methods(http.MethodPost)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.runWorker()
	}
	return s
}

func (s *Server) runWorker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.queue:
			if err := s.handler(s.ctx, msg); err != nil {
				s.logger.Sugar().Warnw("Message rejected", "path", s.path, "error", err)
			}
		}
	}
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "addr", ln.Addr().String(), "path", s.path)
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("HTTP server error", "addr", ln.Addr().String(), "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down, then stops the workers. Messages still
// queued are dropped.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	s.wg.Wait()
	return err
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxMessageSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > MaxMessageSize {
		http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(body) == 0 {
		http.Error(w, "empty message", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		http.Error(w, "server is stopping", http.StatusServiceUnavailable)
		return
	}

	select {
	case s.queue <- body:
		w.WriteHeader(http.StatusAccepted)
	default:
		s.logger.Sugar().Warnw("Message queue full", "path", s.path, "capacity", cap(s.queue))
		http.Error(w, "message queue full", http.StatusServiceUnavailable)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
