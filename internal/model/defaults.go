package model

import "time"

// Shared defaults used by both the server and console binaries.
const (
	DefaultPollInterval      = 10 * time.Second
	DefaultSettleDelay       = 2 * time.Second
	DefaultReconnectDelay    = 5 * time.Second
	DefaultKeepaliveInterval = 15 * time.Second
	DefaultTailInterval      = time.Second
	DefaultLogBuffer         = 10_000
	DefaultStreamPath        = "/api/openvpn/logs/stream"
)
