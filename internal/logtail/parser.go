package logtail

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vpntools/vpnconsole/internal/model"
)

// categoryPattern pairs a category with the line pattern that selects it.
// Order matters: the first match wins, anything unmatched is "info".
type categoryPattern struct {
	category model.Category
	re       *regexp.Regexp
}

var categoryPatterns = []categoryPattern{
	{model.CategoryConnection, regexp.MustCompile(`(?i)Client (connected|disconnected)`)},
	{model.CategoryAuthentication, regexp.MustCompile(`(?i)(authentication|auth) (successful|failed)`)},
	{model.CategoryError, regexp.MustCompile(`(Error|ERROR|Failed|FAILED)`)},
	{model.CategoryWarning, regexp.MustCompile(`(Warning|WARNING)`)},
	{model.CategorySystem, regexp.MustCompile(`(?i)(OpenVPN service|daemon|process)`)},
	{model.CategoryNetwork, regexp.MustCompile(`(?i)(route|subnet|topology|gateway|DNS)`)},
}

var (
	openvpnTimestampRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)
	apacheTimestampRe  = regexp.MustCompile(`\[(\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4})\]`)
	ipAddressRe        = regexp.MustCompile(`(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)
	usernameRe         = regexp.MustCompile(`(?i)user[:\s]\s*([a-zA-Z0-9_-]+)`)
)

const apacheTimestampLayout = "02/Jan/2006:15:04:05 -0700"

// Parser turns raw OpenVPN log lines into structured records.
type Parser struct {
	now func() time.Time
}

// NewParser returns a Parser that stamps unparseable timestamps with the
// current time.
func NewParser() *Parser {
	return &Parser{now: time.Now}
}

// ParseLine builds a LogRecord from one raw log line. The message keeps
// the whole trimmed line, as the original console displays it.
func (p *Parser) ParseLine(line string) model.LogRecord {
	trimmed := strings.TrimSpace(line)

	rec := model.LogRecord{
		ID:        uuid.NewString(),
		Timestamp: p.extractTimestamp(trimmed),
		Type:      classify(trimmed),
		Message:   trimmed,
	}

	if m := ipAddressRe.FindStringSubmatch(trimmed); m != nil {
		rec.IPAddress = m[1]
	}
	if m := usernameRe.FindStringSubmatch(trimmed); m != nil {
		rec.Username = m[1]
	}

	return rec
}

func (p *Parser) extractTimestamp(line string) string {
	if m := openvpnTimestampRe.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := apacheTimestampRe.FindStringSubmatch(line); m != nil {
		if t, err := time.Parse(apacheTimestampLayout, m[1]); err == nil {
			return t.Format(model.TimestampLayout)
		}
	}
	return p.now().Format(model.TimestampLayout)
}

func classify(line string) model.Category {
	for _, cp := range categoryPatterns {
		if cp.re.MatchString(line) {
			return cp.category
		}
	}
	return model.CategoryInfo
}
