package hostfeed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/snapshot"
)

// MaxLineSize bounds one message. A full inventory with components fits
// comfortably.
const MaxLineSize = 4 << 20

// ErrLineTooLong marks a message longer than MaxLineSize. The line is
// discarded and the feed continues with the next one.
var ErrLineTooLong = errors.New("host message exceeds maximum line size")

// Handler receives decoded notifications. The run command passes a
// *tracker.Tracker combined with the store's preference updates.
type Handler interface {
	OnJoin(owner snapshot.Owner) error
	OnDisconnect(owner snapshot.Owner) error
	OnDeath(owner snapshot.Owner, message string) error
	OnLevelChange(owner snapshot.Owner, origin event.Zone) error
	SetTimezone(owner snapshot.Owner, zone string) error
	Update(owner snapshot.Owner)
}

// Stats counts the lines seen by Run.
type Stats struct {
	Dispatched int
	Skipped    int
}

// Run reads messages from r until EOF or ctx is cancelled. Malformed or
// oversized lines are logged and skipped; handler errors are logged and do
// not stop the feed.
func Run(ctx context.Context, r io.Reader, h Handler, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "hostfeed")

	var stats Stats
	br := bufio.NewReaderSize(r, 64*1024)

	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw, err := readLine(br, MaxLineSize)
		if err == io.EOF {
			break
		}
		if errors.Is(err, ErrLineTooLong) {
			stats.Skipped++
			logger.Warn("skipping host message", "line", line, "error", err)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("read host feed: %w", err)
		}
		if len(raw) == 0 {
			continue
		}

		if err := dispatch(raw, h); err != nil {
			stats.Skipped++
			logger.Warn("skipping host message", "line", line, "error", err)
			continue
		}
		stats.Dispatched++
	}
	return stats, ctx.Err()
}

// readLine returns the next line without its line ending. A line longer
// than max is read to its end and reported as ErrLineTooLong. io.EOF is
// returned only when no bytes remain.
func readLine(br *bufio.Reader, max int) ([]byte, error) {
	var (
		buf     []byte
		read    int
		tooLong bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			// Room for a trailing CRLF.
			if len(buf)+len(chunk) > max+2 {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == io.EOF && read == 0:
			return nil, io.EOF
		case err != nil && err != io.EOF:
			return nil, err
		}

		buf = bytes.TrimSuffix(buf, []byte("\n"))
		buf = bytes.TrimSuffix(buf, []byte("\r"))
		if tooLong || len(buf) > max {
			return nil, ErrLineTooLong
		}
		return buf, nil
	}
}

func dispatch(raw []byte, h Handler) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	player, origin, err := msg.validate()
	if err != nil {
		return err
	}

	switch msg.Kind {
	case KindJoin:
		return h.OnJoin(player)
	case KindDisconnect:
		return h.OnDisconnect(player)
	case KindDeath:
		return h.OnDeath(player, msg.DeathMessage)
	case KindLevelChange:
		return h.OnLevelChange(player, origin)
	case KindSetTimezone:
		return h.SetTimezone(player, msg.Timezone)
	default:
		h.Update(player)
		return nil
	}
}
