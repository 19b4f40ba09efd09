package logtail

import (
	"testing"
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
)

func TestParseLine_Classification(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		want model.Category
	}{
		{"2025-04-30 10:15:22 Client connected from 192.168.1.100:52364", model.CategoryConnection},
		{"2025-04-30 10:15:25 Client disconnected", model.CategoryConnection},
		{"2025-04-30 10:16:01 user: bob authentication failed", model.CategoryAuthentication},
		{"2025-04-30 10:16:02 TLS Error: handshake failed", model.CategoryError},
		{"2025-04-30 10:16:03 WARNING: weak cipher in use", model.CategoryWarning},
		{"2025-04-30 10:16:04 OpenVPN service started", model.CategorySystem},
		{"2025-04-30 10:16:05 route add 10.8.0.0/24 via gateway", model.CategoryNetwork},
		{"2025-04-30 10:16:06 MULTI: primary virtual IP", model.CategoryInfo},
	}

	p := NewParser()
	for _, tc := range cases {
		rec := p.ParseLine(tc.line)
		if rec.Type != tc.want {
			t.Errorf("ParseLine(%q).Type = %q, want %q", tc.line, rec.Type, tc.want)
		}
		if rec.ID == "" {
			t.Errorf("ParseLine(%q) produced empty ID", tc.line)
		}
	}
}

func TestParseLine_Timestamps(t *testing.T) {
	t.Parallel()

	p := NewParser()

	rec := p.ParseLine("2025-04-30 10:15:22 Client connected")
	if rec.Timestamp != "2025-04-30 10:15:22" {
		t.Errorf("openvpn timestamp = %q", rec.Timestamp)
	}

	rec = p.ParseLine(`127.0.0.1 - - [29/Apr/2025:23:54:11 +0000] "GET /api/openvpn/logs/stream HTTP/1.0" 200 39`)
	if rec.Timestamp != "2025-04-29 23:54:11" {
		t.Errorf("apache timestamp = %q, want 2025-04-29 23:54:11", rec.Timestamp)
	}

	// No timestamp in the line: parser stamps "now".
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }
	rec = p.ParseLine("no timestamp here")
	if rec.Timestamp != "2025-05-01 12:00:00" {
		t.Errorf("fallback timestamp = %q", rec.Timestamp)
	}
}

func TestParseLine_OptionalFields(t *testing.T) {
	t.Parallel()

	p := NewParser()

	rec := p.ParseLine("2025-04-30 10:15:22 Client connected from 192.168.1.100:52364 user: alice")
	if rec.IPAddress != "192.168.1.100" {
		t.Errorf("ip = %q, want 192.168.1.100", rec.IPAddress)
	}
	if rec.Username != "alice" {
		t.Errorf("username = %q, want alice", rec.Username)
	}

	// Space-separated form, without the colon.
	rec = p.ParseLine("2025-04-30 10:15:23 user carol disconnected")
	if rec.Username != "carol" {
		t.Errorf("username = %q, want carol", rec.Username)
	}

	rec = p.ParseLine("2025-04-30 10:15:22 daemon started")
	if rec.IPAddress != "" || rec.Username != "" {
		t.Errorf("expected no optional fields, got ip=%q user=%q", rec.IPAddress, rec.Username)
	}
}
