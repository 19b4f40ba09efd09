package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/vpntools/vpnconsole/internal/model"
)

// maxEventSize bounds a single SSE event payload.
const maxEventSize = 4 * 1024 * 1024

// readEvents parses server-sent events off r and delivers each decoded
// message until the stream ends. Comment lines, including keepalives,
// are skipped.
func readEvents(r io.Reader, deliver func(model.StreamMessage)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventSize)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if data.Len() > 0 {
				var msg model.StreamMessage
				if err := json.Unmarshal([]byte(data.String()), &msg); err == nil {
					deliver(msg)
				}
				data.Reset()
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(payload, " "))
		}
		// Other fields (event, id, retry) are not part of the log
		// stream contract and are ignored.
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
