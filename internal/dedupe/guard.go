// Package dedupe suppresses repeated deliveries of the same swap log and
// forgets logs that a chain reorganization removed.
package dedupe

import (
	"context"
	"time"

	"buyScope/internal/model"
)

const (
	DefaultCapacity = 10000
	DefaultTTL      = 24 * time.Hour
)

// Guard tracks which swap logs have already produced an alert.
type Guard interface {
	// IsDuplicate reports whether key was marked and has not expired.
	IsDuplicate(ctx context.Context, key model.EventKey) (bool, error)
	// MarkSeen records key, refreshing its expiry.
	MarkSeen(ctx context.Context, key model.EventKey) error
	// HandleReorg forgets key so a re-included log is reported again.
	HandleReorg(ctx context.Context, key model.EventKey) error
	// CheckAndMark records key and reports true when it was not already seen.
	CheckAndMark(ctx context.Context, key model.EventKey) (bool, error)
}
