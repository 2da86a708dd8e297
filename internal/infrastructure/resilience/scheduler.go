package resilience

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lendstack/docpack/internal/core/domain"
)

// Scheduler adapts the Executor to the engine's retry port: only transient
// failures (network/server) are retried; cancellation and everything else
// surfaces immediately.
type Scheduler struct {
	executor *Executor
	retries  *prometheus.CounterVec
}

func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{executor: NewExecutor(cfg, ClassifyDomainError)}
}

// WithRetryCounter records every scheduled retry attempt, labeled by
// operation.
func (s *Scheduler) WithRetryCounter(counter *prometheus.CounterVec) *Scheduler {
	s.retries = counter
	return s
}

func (s *Scheduler) Run(ctx context.Context, operation string, fn func(context.Context) error) error {
	attempt := 0
	wrapped := func(callCtx context.Context) error {
		if attempt > 0 && s.retries != nil {
			s.retries.WithLabelValues(operation).Inc()
		}
		attempt++
		return fn(callCtx)
	}
	return s.executor.Execute(ctx, operation, wrapped)
}

// ClassifyDomainError retries transient kinds only. Context cancellation is
// neither retried nor counted against the breaker.
func ClassifyDomainError(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || domain.IsKind(err, domain.ErrCancelled) {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if domain.IsKind(err, domain.ErrTransient) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return ErrorClassification{Retryable: false, RecordFailure: true}
}
