package server

// ListenerHandle is the not-yet-bound listening socket passed to
// PreBindCallbacks, matching spec.md §4.7 step 2 ("invoke each pre-bind
// hook with the listening socket"): it is handed to hooks after the
// socket is allocated (and SO_REUSEADDR applied) but strictly before
// bind(2) runs, so a hook can still apply its own setsockopt calls
// ahead of bind.
type ListenerHandle interface {
	// Fd returns the raw socket descriptor.
	Fd() uintptr
}

type fdHandle uintptr

func (h fdHandle) Fd() uintptr { return uintptr(h) }
