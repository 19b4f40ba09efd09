package logtail

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vpntools/vpnconsole/internal/model"
)

const (
	// DefaultTailBuffer is the default channel buffer size for batches.
	DefaultTailBuffer = 256

	// DefaultMaxLineSize bounds a single log line.
	DefaultMaxLineSize = 1024 * 1024 // 1MB
)

// TailConfig holds tunable parameters for the file tailer.
type TailConfig struct {
	Interval    time.Duration
	BufferSize  int
	MaxLineSize int
}

// Tailer follows the OpenVPN log file and emits batches of parsed records.
// A missing file is not an error; the tailer keeps polling until it shows
// up. Truncation (rotation) resets the read offset to the start.
type Tailer struct {
	path   string
	parser *Parser
	ch     chan []model.LogRecord
	cancel context.CancelFunc

	interval    time.Duration
	maxLineSize int
	offset      int64
}

// NewTailer creates a Tailer and starts following path in a background
// goroutine.
func NewTailer(ctx context.Context, path string, conf ...TailConfig) *Tailer {
	interval := model.DefaultTailInterval
	bufferSize := DefaultTailBuffer
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 {
		if conf[0].Interval > 0 {
			interval = conf[0].Interval
		}
		if conf[0].BufferSize > 0 {
			bufferSize = conf[0].BufferSize
		}
		if conf[0].MaxLineSize > 0 {
			maxLineSize = conf[0].MaxLineSize
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Tailer{
		path:        path,
		parser:      NewParser(),
		ch:          make(chan []model.LogRecord, bufferSize),
		cancel:      cancel,
		interval:    interval,
		maxLineSize: maxLineSize,
	}
	go t.follow(ctx)
	return t
}

// Batches returns the read-only channel of parsed record batches. It is
// closed when the tailer stops.
func (t *Tailer) Batches() <-chan []model.LogRecord { return t.ch }

// Stop terminates the follow goroutine. Safe to call more than once.
func (t *Tailer) Stop() { t.cancel() }

func (t *Tailer) follow(ctx context.Context) {
	defer close(t.ch)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := t.readNew()
			if err != nil {
				log.WithError(err).WithField("path", t.path).Warn("logtail: read failed")
				continue
			}
			if len(batch) == 0 {
				continue
			}
			select {
			case t.ch <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// readNew reads lines appended since the last poll.
func (t *Tailer) readNew() ([]model.LogRecord, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < t.offset {
		// Rotated or truncated underneath us.
		t.offset = 0
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, t.maxLineSize), t.maxLineSize)

	var batch []model.LogRecord
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		batch = append(batch, t.parser.ParseLine(line))
	}
	if err := scanner.Err(); err != nil {
		return batch, err
	}

	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return batch, err
	}
	t.offset = pos
	return batch, nil
}
