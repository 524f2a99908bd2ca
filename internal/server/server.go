package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"kvserver/internal/usecase"
	"kvserver/internal/usecase/command"
	"kvserver/internal/usecase/resp"
)

type Config struct {
	Addr        string
	IdleTimeout time.Duration
}

// Server speaks RESP over TCP. Each connection gets its own Service handle
// over the shared backend.
type Server struct {
	config   Config
	listener net.Listener
	service  usecase.Service
	logger   *zap.Logger
	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	conns    sync.Map
}

func NewServer(cfg Config, service usecase.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:   cfg,
		service:  service,
		logger:   logger.Named("resp"),
		shutdown: make(chan struct{}),
	}
}

func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.logger.Info("Server started", zap.String("addr", s.listener.Addr().String()))
	s.wg.Add(1)
	go s.serve()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			s.listener.Close()
		}
		s.conns.Range(func(key any, _ any) bool {
			conn := key.(net.Conn)
			conn.Close()
			return true
		})
		s.wg.Wait()
		s.logger.Info("Server stopped gracefully")
	})
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("Accept error", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn, s.service)
		}()
	}
}

func (s *Server) handleConnection(conn net.Conn, service usecase.Service) {
	s.conns.Store(conn, struct{}{})
	defer func() {
		conn.Close()
		s.conns.Delete(conn)
	}()

	remoteAddr := conn.RemoteAddr().String()
	logger := s.logger.With(zap.String("remote", remoteAddr))
	logger.Debug("New connection")

	reader := resp.NewReader(conn)
	writer := resp.NewWriter(conn)

	for {
		if s.config.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		frame, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("Client disconnected")
				return
			}
			select {
			case <-s.shutdown:
			default:
				logger.Warn("Error reading request", zap.Error(err))
			}
			return
		}

		logger.Debug("Command received", zap.String("command", commandToString(frame)))

		if err := writer.Write(s.process(frame, service)); err != nil {
			logger.Warn("Failed to write response", zap.Error(err))
			return
		}
	}
}

func (s *Server) process(frame resp.Value, service usecase.Service) resp.Value {
	if resp.Verb(frame) == "PING" {
		return ping(frame.Array[1:])
	}

	req, err := resp.DecodeRequest(frame)
	if err != nil {
		return resp.EncodeResponse(command.ErrorResponse(err))
	}
	return resp.EncodeResponse(service.Execute(req))
}

func ping(args []resp.Value) resp.Value {
	if len(args) == 0 {
		return resp.Value{Typ: "string", Str: "PONG"}
	}
	return resp.Bulk(args[0].Bulk)
}

func commandToString(frame resp.Value) string {
	parts := make([]string, 0, len(frame.Array))
	for _, arg := range frame.Array {
		parts = append(parts, arg.Bulk)
	}
	return strings.Join(parts, " ")
}
