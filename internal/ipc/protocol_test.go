package ipc

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordingHandler struct {
	shows    int
	injected []string
	err      error
}

func (h *recordingHandler) Show() error {
	h.shows++
	return h.err
}

func (h *recordingHandler) Inject(text string) error {
	h.injected = append(h.injected, text)
	return h.err
}

func TestDispatch(t *testing.T) {
	h := &recordingHandler{}
	if err := Dispatch(h, Request{Command: CommandShow}); err != nil {
		t.Fatalf("Dispatch(show) error = %v", err)
	}
	if err := Dispatch(h, Request{Command: CommandInject, Text: "你好"}); err != nil {
		t.Fatalf("Dispatch(inject) error = %v", err)
	}
	if h.shows != 1 || len(h.injected) != 1 || h.injected[0] != "你好" {
		t.Fatalf("handler = %+v", h)
	}

	err := Dispatch(h, Request{Command: "quit"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("Dispatch(quit) error = %v, want ErrUnknownCommand", err)
	}
	if !strings.Contains(err.Error(), `"quit"`) {
		t.Fatalf("error %q does not name the command", err)
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	boom := errors.New("window gone")
	h := &recordingHandler{err: boom}
	if err := Dispatch(h, Request{Command: CommandShow}); !errors.Is(err, boom) {
		t.Fatalf("Dispatch() error = %v, want %v", err, boom)
	}
}

func TestDecodeRequestNormalizesCommand(t *testing.T) {
	req, err := decodeRequest([]byte(`{"id":"1","command":" SHOW "}`))
	if err != nil {
		t.Fatalf("decodeRequest() error = %v", err)
	}
	if req.Command != CommandShow || req.ID != "1" {
		t.Fatalf("decodeRequest() = %+v", req)
	}
	if _, err := decodeRequest([]byte("{")); err == nil {
		t.Fatal("decodeRequest(invalid) expected error")
	}
}

func TestDefaultEndpoint(t *testing.T) {
	orig := currentUsername
	t.Cleanup(func() { currentUsername = orig })
	currentUsername = func() string { return "unit_user" }

	t.Run("per-user default", func(t *testing.T) {
		t.Setenv(EndpointEnv, "")
		got := DefaultEndpoint()
		if got != defaultEndpointFor("unit_user") || !strings.Contains(got, "floatrans-unit_user") {
			t.Fatalf("DefaultEndpoint() = %q", got)
		}
	})

	t.Run("trusted override", func(t *testing.T) {
		override := defaultEndpointFor("ci_pipe")
		t.Setenv(EndpointEnv, override)
		if got := DefaultEndpoint(); got != override {
			t.Fatalf("DefaultEndpoint() = %q, want %q", got, override)
		}
	})

	t.Run("untrusted override rejected", func(t *testing.T) {
		t.Setenv(EndpointEnv, "/tmp/other-app.sock")
		if got := DefaultEndpoint(); got != defaultEndpointFor("unit_user") {
			t.Fatalf("DefaultEndpoint() = %q, want per-user default", got)
		}
	})
}

func TestInjectRejectsOversizedText(t *testing.T) {
	text := strings.Repeat("x", MaxTextBytes+1)
	err := Inject(context.Background(), "unused-endpoint", text)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("Inject() error = %v, want size error", err)
	}
}
