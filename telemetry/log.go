// Package telemetry provides structured logging and run-report formatting
// for the simulation core, grounded on the teacher pack's zap setup
// (sakateka-yanet2's controlplane/pkg/yncp.InitLogging) rather than the
// standard library's log package.
package telemetry

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a SugaredLogger at the given level ("debug", "info",
// "warn", "error"), the same AtomicLevel-driven zap.Config().Build() shape
// InitLogging uses.
func NewLogger(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Development = false

	var lvl zap.AtomicLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	cfg.Level = lvl

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}
