// Package ipc lets a second floatrans process or floatransctl reach the
// running app. Each connection carries one newline-delimited JSON request
// and one response. Windows uses a named pipe restricted to the current
// user; other platforms use a unix socket with mode 0600.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Commands.
const (
	CommandShow   = "show"
	CommandInject = "inject"
)

// EndpointEnv overrides DefaultEndpoint when it passes validation.
const EndpointEnv = "FLOATRANS_IPC"

// MaxTextBytes bounds inject text so the encoded request fits the server's
// frame limit even when every byte needs escaping.
const MaxTextBytes = maxRequestBytes / 2

// ErrUnknownCommand is returned for commands other than show and inject.
var ErrUnknownCommand = errors.New("unknown command")

// Request is one client request. ID correlates the response.
type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler is implemented by the running app.
type Handler interface {
	// Show brings the translator window to the front.
	Show() error
	// Inject shows the window and replaces the input text.
	Inject(text string) error
}

// Dispatch routes req to h.
func Dispatch(h Handler, req Request) error {
	switch req.Command {
	case CommandShow:
		return h.Show()
	case CommandInject:
		return h.Inject(req.Text)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
}

var endpointPattern = regexp.MustCompile(`(?i)floatrans-[a-z0-9._-]{1,128}(\.sock)?$`)

// DefaultEndpoint returns the per-user pipe name or socket path.
func DefaultEndpoint() string {
	if v, ok := trustedEndpointFromEnv(); ok {
		return v
	}
	return defaultEndpointFor(currentUsername())
}

func trustedEndpointFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(EndpointEnv))
	if value == "" {
		return "", false
	}
	if !endpointPattern.MatchString(value) {
		slog.Warn("[ipc] endpoint override rejected: value does not match allowed pattern",
			"env", EndpointEnv, "value", value)
		return "", false
	}
	return value, true
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	req.Command = strings.ToLower(strings.TrimSpace(req.Command))
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
