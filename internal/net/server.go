package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// Server hosts battles over TCP, one session per connection.
type Server struct {
	Addr    string
	Session SessionConfig
	Logger  zerolog.Logger
}

// Run listens on Addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.Logger.Info().Str("addr", ln.Addr().String()).Msg("waiting for players")
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then waits for the
// open sessions to wind down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn runs one session on conn until the client leaves or ctx ends.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	logger := s.Logger.With().Str("remote", conn.RemoteAddr().String()).Logger()
	logger.Info().Msg("player connected")

	// Unblock the decoder when the server shuts down.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	out := &connSender{enc: json.NewEncoder(conn)}
	cfg := s.Session
	cfg.Logger = logger
	sess := NewSession(cfg, out)
	defer func() {
		cancel()
		sess.Close()
		logger.Info().Msg("player disconnected")
	}()

	dec := json.NewDecoder(conn)
	for {
		var msg ClientMessage
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		if err := sess.Handle(ctx, msg); err != nil {
			_ = out.Send(ServerMessage{Type: MsgError, Error: err.Error()})
		}
	}
}

// connSender writes newline-delimited JSON to one connection.
type connSender struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (c *connSender) Send(msg ServerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(msg)
}
