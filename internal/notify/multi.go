package notify

import (
	"context"
	stderrors "errors"

	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// Multi fans a batch out to several notifiers. Every notifier is tried;
// failures are joined.
type Multi []monitor.Notifier

// Notify delivers batch to each notifier in order.
func (m Multi) Notify(ctx context.Context, userID monitor.UserID, batch monitor.Batch) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, userID, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
