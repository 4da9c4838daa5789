package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// storeConnectTimeout bounds the initial connection to a remote store.
	storeConnectTimeout = 15 * time.Second
)
