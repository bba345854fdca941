// Package push holds the process-wide push notification opt-in settings
// handed to browser clients.
//
// The subsystem is initialized once with Init and torn down with Shutdown.
// Init is a single atomic compare-and-swap: concurrent and repeated calls
// are safe, and only the first one while uninitialized takes effect.
package push

import (
	"errors"
	"sync/atomic"
)

var (
	ErrNoAppID        = errors.New("push app id is required")
	ErrNotInitialized = errors.New("push notifications are not initialized")
)

// Settings is the client-side opt-in configuration.
type Settings struct {
	AppID                        string `json:"appId"`
	AllowLocalhostAsSecureOrigin bool   `json:"allowLocalhostAsSecureOrigin"`
	NotifyButtonEnabled          bool   `json:"notifyButtonEnabled"`
}

var current atomic.Pointer[Settings]

// Init installs the settings if the subsystem is not yet initialized. It
// reports whether this call performed the initialization.
func Init(s Settings) (bool, error) {
	if s.AppID == "" {
		return false, ErrNoAppID
	}
	return current.CompareAndSwap(nil, &s), nil
}

// Shutdown clears the settings so a later Init can take effect again.
func Shutdown() {
	current.Store(nil)
}

// Current returns the installed settings.
func Current() (Settings, error) {
	s := current.Load()
	if s == nil {
		return Settings{}, ErrNotInitialized
	}
	return *s, nil
}

// Initialized reports whether Init has taken effect.
func Initialized() bool {
	return current.Load() != nil
}
