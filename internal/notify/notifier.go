// Package notify delivers buy alerts to their consumers.
package notify

import (
	"context"
	"errors"

	"buyScope/internal/model"
)

// Notifier receives each batch of alerts.
type Notifier interface {
	Notify(ctx context.Context, alerts []model.BuyAlert) error
}

// Multi fans a batch out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alerts []model.BuyAlert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alerts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
