package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const (
	defaultDialTimeout = 2 * time.Second
	defaultRWTimeout   = 10 * time.Second
	maxResponseBytes   = 4 * 1024
)

// Send delivers req to the server at endpoint and waits for its response.
// A missing ID is filled with a random UUID. A response that reports
// failure is returned together with a non-nil error.
func Send(ctx context.Context, endpoint string, req Request) (Response, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint()
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	conn, err := dial(ctx, endpoint, defaultDialTimeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	deadline := time.Now().Add(defaultRWTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	raw, err := encodeRequest(req)
	if err != nil {
		return Response{}, err
	}
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return Response{}, err
	}

	respRaw, err := readFrame(bufio.NewReaderSize(conn, maxResponseBytes+1), maxResponseBytes)
	if err != nil {
		return Response{}, err
	}
	resp, err := decodeResponse(respRaw)
	if err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	if resp.ID != "" && resp.ID != req.ID {
		return resp, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if !resp.OK {
		return resp, fmt.Errorf("%s: %s", req.Command, resp.Error)
	}
	return resp, nil
}

// Show asks the running app to show its window.
func Show(ctx context.Context, endpoint string) error {
	_, err := Send(ctx, endpoint, Request{Command: CommandShow})
	return err
}

// Inject asks the running app to show its window with text as input.
func Inject(ctx context.Context, endpoint, text string) error {
	if len(text) > MaxTextBytes {
		return fmt.Errorf("inject text exceeds %d bytes", MaxTextBytes)
	}
	_, err := Send(ctx, endpoint, Request{Command: CommandInject, Text: text})
	return err
}

// IsConnectionError reports whether err means no server is listening.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" || opErr.Op == "open"
	}
	return false
}
