package videos

import "errors"

var (
	// ErrProbeUnavailable indicates the duration probe is not configured.
	ErrProbeUnavailable = errors.New("video duration probe unavailable")
	// ErrJanitorClosed is returned by Enqueue after Shutdown.
	ErrJanitorClosed = errors.New("media janitor closed")
)
