package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/flightwatch/internal/model"
)

// Notifier delivers a notification to one destination. A nil error means
// the destination confirmed receipt.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) (model.Receipt, error)
	Close() error
}

// Deleter removes a previously delivered message.
type Deleter interface {
	Delete(ctx context.Context, r model.Receipt) error
}

// ErrDelivery matches any *DeliveryError via errors.Is.
var ErrDelivery = errors.New("delivery failed")

// DeliveryError reports a failed notification. The event stays unreported.
type DeliveryError struct {
	Destination string
	Key         model.EventKey
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: deliver %s: %v", e.Destination, e.Key, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }
