// Package server owns the TCP listener the query engine is served
// over: one connection per query, capped by a connection semaphore.
package server

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	serverName = "FheDB Server"
)

type handler interface {
	Handle(conn net.Conn)
}

type Server struct {
	listener net.Listener
	address  string
	port     int
	handler  handler

	// configuration for handling connections
	maxConnections int
	connSemaphore  chan struct{}
	activeConns    sync.WaitGroup
}

type Config struct {
	Address        string
	Port           int
	Handler        handler
	MaxConnections int
}

func (c *Config) validate() error {
	var errGrp []error

	// Port 0 asks the OS for an ephemeral port.
	if c.Port < 0 || c.Port > 65535 {
		errGrp = append(errGrp, errors.New("port must be between 0 and 65535"))
	}
	if c.Handler == nil {
		errGrp = append(errGrp, errors.New("handler is required"))
	}

	return errors.Join(errGrp...)
}

// New returns a new FheDB server, which provides a way to start and
// listen to incoming query connections.
func New(cfg *Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Address, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 100 // default value
	}

	return &Server{
		listener:       listener,
		address:        cfg.Address,
		port:           cfg.Port,
		handler:        cfg.Handler,
		maxConnections: maxConns,
		connSemaphore:  make(chan struct{}, maxConns),
		activeConns:    sync.WaitGroup{},
	}, nil
}

func (s *Server) Start() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		remoteAddr := conn.RemoteAddr().String()

		// Try to acquire a connection slot
		select {
		case s.connSemaphore <- struct{}{}:
			s.activeConns.Add(1)
			go func() {
				defer func() {
					<-s.connSemaphore
					s.activeConns.Done()
				}()

				log.Debug().Str("remote", remoteAddr).Msg("handling connection")
				s.handler.Handle(conn)
			}()
		default:
			// Max connections reached, reject the connection
			_ = conn.Close()
			log.Warn().Str("remote", remoteAddr).Msg("rejected connection: max connections reached")
		}
	}
}

// Stop will stop the server from accepting new connections.
func (s *Server) Stop() error {
	err := s.listener.Close()
	s.activeConns.Wait() // Wait for all active connections to finish
	return err
}

// Name returns the name of the server.
func (s *Server) Name() string {
	return serverName
}

// Addr reports the listener's bound address, useful when the
// configured port is 0 in tests.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
