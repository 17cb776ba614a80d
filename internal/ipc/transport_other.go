//go:build !windows

package ipc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"
)

func defaultEndpointFor(username string) string {
	return filepath.Join(os.TempDir(), "floatrans-"+username+".sock")
}

// listen binds a unix socket readable only by the current user. A stale
// socket file left by a crashed process is removed first.
func listen(endpoint string) (net.Listener, error) {
	if err := removeStaleSocket(endpoint); err != nil {
		return nil, err
	}
	ln, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(endpoint, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

func removeStaleSocket(endpoint string) error {
	info, err := os.Lstat(endpoint)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", endpoint)
	}
	conn, dialErr := net.DialTimeout("unix", endpoint, 200*time.Millisecond)
	if dialErr == nil {
		_ = conn.Close()
		return fmt.Errorf("%s is in use", endpoint)
	}
	slog.Debug("[ipc] removing stale socket", "path", endpoint)
	return os.Remove(endpoint)
}

func dial(ctx context.Context, endpoint string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, "unix", endpoint)
}
