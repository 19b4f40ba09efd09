package model

// LogArchive is the narrow store contract required by the HTTP API:
// append parsed records and read them back filtered.
type LogArchive interface {
	InsertBatch(records []LogRecord) error
	// Recent returns up to limit records passing the filter. newestFirst
	// selects display order (the REST endpoint) versus replay order (the
	// stream's initial payload).
	Recent(limit int, filter Filter, newestFirst bool) ([]LogRecord, error)
	TotalCount() (int64, error)
}

// LogBroadcaster fans incoming record batches out to stream subscribers.
// The returned cancel func must be safe to call more than once.
type LogBroadcaster interface {
	Subscribe(filter Filter) (<-chan []LogRecord, func())
}

// ServiceController mediates OpenVPN service lifecycle and inspection.
type ServiceController interface {
	Status() (ServiceStatus, error)
	PID() (int, error)
	Start() error
	Stop() error
	Restart() error
	ActiveClients() ([]VPNClient, error)
	AddClient(username string) error
	RevokeClient(username string) error
}
