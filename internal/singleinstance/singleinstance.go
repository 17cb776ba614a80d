// Package singleinstance keeps one floatrans app per user. A second launch
// gets ErrAlreadyRunning and is expected to signal the first over ipc.
package singleinstance

import "errors"

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")
