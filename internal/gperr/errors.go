package gperr

var (
	// ErrConfiguration is fatal at startup: missing or unreadable watch root,
	// malformed forward target or invalid config value.
	ErrConfiguration = New("configuration error")
	// ErrWatchSubtree is reported when a watched directory becomes inaccessible.
	// Only that subtree stops being watched.
	ErrWatchSubtree = New("watch subtree error")
	// ErrConnection is a dial or send failure to the forward target.
	ErrConnection = New("connection error")
	// ErrAllRootsLost is reported when no watch root is left to watch.
	ErrAllRootsLost = New("all watch roots lost")
)

// ErrUnhandledFault is the cause a flow finishes with after a recovered panic.
var ErrUnhandledFault = New("unhandled fault")
