package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"floatrans/internal/workerutil"
)

const (
	defaultConnTimeout     = 10 * time.Second
	maxRequestBytes        = 16 * 1024
	maxConcurrentConns     = 8
	connSlotAcquireTimeout = 2 * time.Second
)

// Server accepts show and inject requests and hands them to a Handler.
type Server struct {
	endpoint string
	handler  Handler

	cancel context.CancelFunc

	mu        sync.Mutex
	listener  net.Listener
	started   bool
	wg        sync.WaitGroup
	connSlots chan struct{}
}

// NewServer constructs a Server. An empty endpoint uses DefaultEndpoint.
func NewServer(endpoint string, handler Handler) *Server {
	if endpoint == "" {
		endpoint = DefaultEndpoint()
	}
	return &Server{
		endpoint:  endpoint,
		handler:   handler,
		connSlots: make(chan struct{}, maxConcurrentConns),
	}
}

// Endpoint returns the listen address.
func (s *Server) Endpoint() string {
	return s.endpoint
}

// Start begins listening. The accept loop stops on Stop or when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("ipc server already started")
	}
	if s.handler == nil {
		return errors.New("ipc server requires handler")
	}

	ln, err := listen(s.endpoint)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.endpoint, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.listener = ln
	s.cancel = cancel
	s.started = true
	workerutil.RunWithPanicRecovery(loopCtx, "ipc-accept", &s.wg, func(ctx context.Context) {
		s.acceptLoop(ctx, ln)
	}, workerutil.RecoveryOptions{})
	slog.Info("[ipc] server listening", "endpoint", s.endpoint)
	return nil
}

// Stop closes the listener and waits for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	var err error
	if ln != nil {
		if err = ln.Close(); err != nil {
			slog.Warn("[ipc] failed to close listener during shutdown", "error", err)
		}
	}
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	consecutiveErrors := 0
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			consecutiveErrors++
			if consecutiveErrors > 10 {
				slog.Warn("[ipc] accept loop: repeated failures", "error", err, "count", consecutiveErrors)
				time.Sleep(500 * time.Millisecond)
			} else {
				slog.Debug("[ipc] accept error", "error", err)
			}
			continue
		}
		consecutiveErrors = 0

		if !s.acquireConnectionSlot(ctx) {
			writeResponse(conn, Response{Error: "server busy, try again later"})
			_ = conn.Close()
			continue
		}
		s.wg.Go(func() {
			defer s.releaseConnectionSlot()
			s.handleConnection(conn)
		})
	}
}

// handleConnection serves one request on conn.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		slog.Warn("[ipc] failed to set connection deadline", "error", err)
		return
	}

	raw, err := readFrame(bufio.NewReaderSize(conn, maxRequestBytes+1), maxRequestBytes)
	if errors.Is(err, io.EOF) {
		slog.Debug("[ipc] client disconnected without sending data")
		return
	}
	if err != nil {
		writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	req, err := decodeRequest(raw)
	if err != nil {
		writeResponse(conn, Response{Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	slog.Debug("[ipc] request received", "id", req.ID, "command", req.Command, "textLen", len(req.Text))
	resp := Response{ID: req.ID, OK: true}
	if err := Dispatch(s.handler, req); err != nil {
		slog.Warn("[ipc] request failed", "id", req.ID, "command", req.Command, "error", err)
		resp.OK = false
		resp.Error = err.Error()
	}
	writeResponse(conn, resp)
}

func writeResponse(conn net.Conn, resp Response) {
	raw, err := encodeResponse(resp)
	if err != nil {
		slog.Warn("[ipc] failed to encode response", "error", err)
		raw = []byte(`{"ok":false,"error":"internal encode error"}`)
	}
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		slog.Debug("[ipc] failed to write response", "error", err)
	}
}

// readFrame reads one newline-terminated frame. A final frame without the
// delimiter is accepted at EOF.
func readFrame(reader *bufio.Reader, maxBytes int) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("frame exceeds %d bytes", maxBytes)
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Server) acquireConnectionSlot(ctx context.Context) bool {
	timer := time.NewTimer(connSlotAcquireTimeout)
	defer timer.Stop()
	select {
	case s.connSlots <- struct{}{}:
		return true
	case <-timer.C:
		slog.Warn("[ipc] connection slots exhausted, rejecting client")
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Server) releaseConnectionSlot() {
	select {
	case <-s.connSlots:
	default:
		slog.Warn("[ipc] releaseConnectionSlot: no slot to release")
	}
}
