//go:build !windows

package winreg

import (
	"context"
	"log/slog"
)

// noopRegistrar satisfies Registrar on platforms without a program registry
type noopRegistrar struct {
	logger *slog.Logger
}

// NewRegistrar creates a no-op registrar
func NewRegistrar(logger *slog.Logger) Registrar {
	return &noopRegistrar{logger: logger}
}

func (r *noopRegistrar) Register(_ context.Context, e Entry) error {
	r.logger.Debug("no program registry on this platform, skipping registration", "product", e.ProductName)
	return nil
}

func (r *noopRegistrar) Unregister(_ context.Context, productName string) error {
	r.logger.Debug("no program registry on this platform, skipping unregistration", "product", productName)
	return nil
}
