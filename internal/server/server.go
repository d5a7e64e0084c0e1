package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"vescollector/internal/dispatcher"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/gin-gonic/gin"
)

// Timeouts bounds how long a connection may take at each stage.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadHeader: 10 * time.Second,
		Read:       30 * time.Second,
		Write:      30 * time.Second,
		Idle:       120 * time.Second,
	}
}

// Server represents a single HTTP server instance
type Server struct {
	Name   string
	Port   int
	Router *gin.Engine

	timeouts   Timeouts
	httpServer *http.Server
	listener   net.Listener
}

// Manager manages the collector and admin server instances
type Manager struct {
	servers map[string]*Server
	order   []string
	logger  *scribe.Scribe
	wg      sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// NewManager creates a new server manager
func NewManager(logger *scribe.Scribe) *Manager {
	return &Manager{
		servers: make(map[string]*Server),
		logger:  logger,
	}
}

// NewRouter builds a gin engine that hands every request to the dispatcher.
func NewRouter(d *dispatcher.Dispatcher, requestLog bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if requestLog {
		router.Use(gin.Logger())
	}

	router.Any("/*path", d.ServeGin)
	router.NoRoute(d.ServeGin)

	return router
}

// CreateServer registers a server under name. Port 0 picks a free port at
// start time.
func (m *Manager) CreateServer(name string, port int, router *gin.Engine, timeouts Timeouts) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("cannot add server %s after start", name)
	}
	if _, exists := m.servers[name]; exists {
		return fmt.Errorf("server %s already exists", name)
	}
	for _, s := range m.servers {
		if port != 0 && s.Port == port {
			return fmt.Errorf("server on port %d already exists", port)
		}
	}

	m.servers[name] = &Server{
		Name:     name,
		Port:     port,
		Router:   router,
		timeouts: timeouts,
	}
	m.order = append(m.order, name)

	return nil
}

// Server returns the named server, if registered.
func (m *Manager) Server(name string) (*Server, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.servers[name]
	return s, ok
}

// Start binds every server and then serves them in the background. If any
// bind fails, the servers already bound are closed and the error returned.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.New("servers already started")
	}

	for i, name := range m.order {
		s := m.servers[name]
		if err := s.listen(); err != nil {
			for _, prev := range m.order[:i] {
				_ = m.servers[prev].listener.Close()
			}
			return fmt.Errorf("error starting server %s on port %d: %w", name, s.Port, err)
		}
	}

	m.started = true
	for _, name := range m.order {
		s := m.servers[name]
		m.wg.Add(1)
		go func(s *Server) {
			defer m.wg.Done()
			m.logger.Info().
				Str("server", s.Name).
				Str("addr", s.Addr()).
				Msg("Starting server")
			if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Error().
					Str("server", s.Name).
					AnErr("error", err).
					Msg("Server stopped with error")
			}
		}(s)
	}

	return nil
}

func (s *Server) listen() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.Port))
	if err != nil {
		return err
	}

	s.listener = listener
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.Port = addr.Port
	}

	s.httpServer = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: s.timeouts.ReadHeader,
		ReadTimeout:       s.timeouts.Read,
		WriteTimeout:      s.timeouts.Write,
		IdleTimeout:       s.timeouts.Idle,
	}
	return nil
}

// Addr returns the address the server is bound to, or its configured port
// before start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ":" + strconv.Itoa(s.Port)
}

// Stop gracefully shuts every server down and waits for the serve loops to
// return. Connections still open when ctx expires are closed.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	servers := make([]*Server, 0, len(m.order))
	for _, name := range m.order {
		servers = append(servers, m.servers[name])
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range servers {
		if s.httpServer == nil {
			continue
		}
		if err := s.httpServer.Shutdown(ctx); err != nil {
			m.logger.Warn().
				Str("server", s.Name).
				AnErr("error", err).
				Msg("Error shutting down server, closing connections")
			_ = s.httpServer.Close()
			errs = append(errs, fmt.Errorf("server %s: %w", s.Name, err))
		}
	}

	m.wg.Wait()
	return errors.Join(errs...)
}

// Wait blocks until every serve loop has returned, whether through Stop or
// because a listener failed.
func (m *Manager) Wait() {
	m.wg.Wait()
}
