// Package notify delivers the result of a check cycle: one message per venue
// with matches, or a single notice when nothing matched.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/lineupwatch/lineupwatch/pkg/polling"
)

type Notifier interface {
	Notify(ctx context.Context, result polling.Result) error
}

// sender delivers one rendered message.
type sender interface {
	send(ctx context.Context, m Message) error
}

// deliver renders result and hands each message to s. A failed message is
// logged and does not stop the others; all failures are returned joined.
func deliver(ctx context.Context, s sender, result polling.Result, days int) error {
	var errs []error
	for _, m := range BuildMessages(result, days) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.send(ctx, m); err != nil {
			utils.Log.Errorf("Failed to send %q: %v", m.Subject, err)
			errs = append(errs, fmt.Errorf("%s: %w", m.Subject, err))
			continue
		}
		utils.Log.Debugf("Sent %q", m.Subject)
	}
	return errors.Join(errs...)
}

// DryRunNotifier writes the plain-text rendering of each message to W.
type DryRunNotifier struct {
	W    io.Writer
	Days int
}

func (n *DryRunNotifier) Notify(ctx context.Context, result polling.Result) error {
	return deliver(ctx, n, result, n.days())
}

func (n *DryRunNotifier) send(_ context.Context, m Message) error {
	_, err := fmt.Fprintf(n.W, "Subject: %s\n\n%s\n%s\n", m.Subject, strings.TrimRight(m.Text, "\n"), strings.Repeat("#", 60))
	return err
}

func (n *DryRunNotifier) days() int {
	if n.Days <= 0 {
		return polling.DefaultWindowDays
	}
	return n.Days
}
