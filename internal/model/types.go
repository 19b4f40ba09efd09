package model

import "time"

// Category classifies a log record into one of the closed set of event
// kinds the console understands. Unrecognized lines fall back to
// CategoryInfo at parse time.
type Category string

const (
	CategoryConnection     Category = "connection"
	CategoryAuthentication Category = "authentication"
	CategoryError          Category = "error"
	CategoryWarning        Category = "warning"
	CategoryInfo           Category = "info"
	CategorySystem         Category = "system"
	CategoryNetwork        Category = "network"
)

// Categories returns the full category set in display order.
func Categories() []Category {
	return []Category{
		CategoryConnection,
		CategoryAuthentication,
		CategoryError,
		CategoryWarning,
		CategoryInfo,
		CategorySystem,
		CategoryNetwork,
	}
}

// ParseCategory validates a category string received from the wire.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	for _, known := range Categories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// LogRecord represents a single observed server event. It is the canonical
// type for tailing, storage, transport (SSE), and display.
type LogRecord struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Type      Category `json:"type"`
	Message   string   `json:"message"`
	IPAddress string   `json:"ipAddress,omitempty"`
	Username  string   `json:"username,omitempty"`
}

// TimestampLayout is the wire format for record timestamps, matching what
// the OpenVPN log itself carries.
const TimestampLayout = "2006-01-02 15:04:05"

// Time parses the record timestamp. Records arrive with either the OpenVPN
// layout or RFC 3339; anything else sorts as the zero time.
func (r LogRecord) Time() time.Time {
	if t, err := time.Parse(TimestampLayout, r.Timestamp); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, r.Timestamp); err == nil {
		return t
	}
	return time.Time{}
}

// Stream message discriminants (spec'd by the log stream endpoint).
const (
	StreamInitial = "initial"
	StreamUpdate  = "update"
)

// StreamMessage is one SSE payload on the log stream: "initial" replaces
// the full record set, "update" appends.
type StreamMessage struct {
	Type string      `json:"type"`
	Logs []LogRecord `json:"logs"`
}

// ServiceState is the reported OpenVPN service state.
type ServiceState string

const (
	ServiceOnline  ServiceState = "online"
	ServiceOffline ServiceState = "offline"
	ServiceUnknown ServiceState = "unknown"
)

// ServiceStatus is the wire shape of GET /api/service_status. Uptime
// seconds are fractional, as the original API reports them.
type ServiceStatus struct {
	Status        ServiceState `json:"status"`
	Uptime        string       `json:"uptime"`
	UptimeSeconds float64      `json:"uptime_seconds"`
}

// ServiceAction is a lifecycle action dispatched against the service.
type ServiceAction string

const (
	ActionStart   ServiceAction = "start"
	ActionStop    ServiceAction = "stop"
	ActionRestart ServiceAction = "restart"
)

// VPNClient describes one currently-connected client from the status file.
type VPNClient struct {
	CommonName     string `json:"common_name"`
	RealAddress    string `json:"real_address"`
	BytesReceived  int64  `json:"bytes_received"`
	BytesSent      int64  `json:"bytes_sent"`
	ConnectedSince string `json:"connected_since"`
}
