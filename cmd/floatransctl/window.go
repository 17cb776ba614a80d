package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"floatrans/internal/ipc"
)

const ipcTimeout = 5 * time.Second

var (
	ipcShowFn   = ipc.Show
	ipcInjectFn = ipc.Inject
)

// errAppNotRunning wraps IPC dial failures so the message names the
// likely cause.
var errAppNotRunning = errors.New("floatrans is not running")

func wrapIPCError(err error) error {
	if ipc.IsConnectionError(err) {
		return fmt.Errorf("%w: %v", errAppNotRunning, err)
	}
	return err
}

func newShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Bring the translator window to the front",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), ipcTimeout)
			defer cancel()
			return wrapIPCError(ipcShowFn(ctx, opts.endpoint))
		},
	}
}

func newInjectCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inject [text...]",
		Short: "Show the window and set its input text",
		Long: `Show the window and replace the input text, which starts a
translation. With no arguments, or "-", the text is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), ipcTimeout)
			defer cancel()
			return wrapIPCError(ipcInjectFn(ctx, opts.endpoint, text))
		},
	}
}

// textFromArgs joins args with spaces, or reads stdin when args is empty
// or "-".
func textFromArgs(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	raw, err := io.ReadAll(io.LimitReader(stdin, ipc.MaxTextBytes+1))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(raw) > ipc.MaxTextBytes {
		return "", fmt.Errorf("input exceeds %d bytes", ipc.MaxTextBytes)
	}
	text := strings.TrimRight(string(raw), "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}
