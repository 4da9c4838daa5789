package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/realtime"
)

// RealtimeHandle wraps the realtime manager with its context for lifecycle management.
type RealtimeHandle struct {
	*realtime.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *RealtimeHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideRealtime provides the realtime event manager.
func ProvideRealtime(i do.Injector) (*RealtimeHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	manager := realtime.NewManager(log.Logger, realtime.Options{
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		ClientBuffer:      cfg.Realtime.ClientBuffer,
	})

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("Realtime manager started",
		"heartbeat", cfg.Realtime.HeartbeatInterval,
		"websocket", cfg.Realtime.EnableWebSocket,
	)

	return &RealtimeHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}
