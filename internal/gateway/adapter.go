package gateway

import (
	"context"

	"github.com/fpt/polyglot/pkg/relay/domain"
)

// Adapter is a platform connection. It publishes inbound events to the bus
// and delivers relay output through domain.Transport.
type Adapter interface {
	domain.Transport

	// Start begins listening for events. Blocks until ctx is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the adapter.
	Stop() error
}
