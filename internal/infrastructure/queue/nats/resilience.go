package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/lendstack/docpack/internal/core/domain"
	"github.com/lendstack/docpack/internal/infrastructure/resilience"
)

// NewPublishExecutor builds a retry/breaker executor tuned for publish
// failures: connection loss and timeouts retry, everything else surfaces.
func NewPublishExecutor(cfg resilience.Config) *resilience.Executor {
	return resilience.NewExecutor(cfg, classifyNATSError)
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func wrapTransientIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTransient) {
		return err
	}
	class := classifyNATSError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTransientNetwork, "nats publish", err)
	}
	return err
}
