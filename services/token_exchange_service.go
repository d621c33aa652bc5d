package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	apperrors "github.com/pushbridge/pushbridge/errors"
	"github.com/pushbridge/pushbridge/internal/iid"
	"github.com/pushbridge/pushbridge/logger"
)

// TokenExchangeService converts APNS device tokens into FCM registration
// tokens and records the outcome of every attempt.
type TokenExchangeService interface {
	// Exchange performs a synchronous exchange of a single device token.
	Exchange(ctx context.Context, deviceToken string) (string, error)

	// ExchangeAsync performs the exchange on the worker pool and delivers the
	// outcome to callback exactly once.
	ExchangeAsync(ctx context.Context, deviceToken string, callback func(iid.Outcome))
}

type tokenExchangeService struct {
	client  *iid.Client
	pool    *WorkerPool
	logger  *zap.SugaredLogger
	metrics *exchangeMetrics
}

// exchangeMetrics holds Prometheus metrics for token exchanges.
type exchangeMetrics struct {
	exchanges *prometheus.CounterVec
	duration  prometheus.Histogram
}

var (
	exMetricsInstance *exchangeMetrics
	exMetricsOnce     sync.Once
	exDefaultRegistry = prometheus.DefaultRegisterer
)

func newExchangeMetrics() *exchangeMetrics {
	exMetricsOnce.Do(func() {
		exMetricsInstance = &exchangeMetrics{
			exchanges: promauto.With(exDefaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "pushbridge_token_exchanges_total",
				Help: "Total number of token exchange attempts by result",
			}, []string{"result"}),
			duration: promauto.With(exDefaultRegistry).NewHistogram(prometheus.HistogramOpts{
				Name:    "pushbridge_token_exchange_duration_seconds",
				Help:    "Time taken to complete a token exchange",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			}),
		}
	})
	return exMetricsInstance
}

// resetExchangeMetricsForTesting resets the metrics singleton for test isolation.
// This should only be called from tests.
func resetExchangeMetricsForTesting() {
	reg := prometheus.NewRegistry()
	exDefaultRegistry = reg
	exMetricsInstance = nil
	exMetricsOnce = sync.Once{}
}

// NewTokenExchangeService creates the exchange service. The pool is optional;
// without it async callbacks run on the exchange goroutine.
func NewTokenExchangeService(client *iid.Client, pool *WorkerPool) TokenExchangeService {
	return &tokenExchangeService{
		client:  client,
		pool:    pool,
		logger:  logger.GetLogger().Named("token-exchange"),
		metrics: newExchangeMetrics(),
	}
}

// Exchange validates the device token, performs the upstream call, and maps
// failures to AppErrors for the HTTP layer.
func (s *tokenExchangeService) Exchange(ctx context.Context, deviceToken string) (string, error) {
	if deviceToken == "" {
		return "", apperrors.ValidationFailed("device token is required", "")
	}

	start := time.Now()
	registrationToken, err := s.client.Exchange(ctx, deviceToken)
	s.metrics.duration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.exchanges.WithLabelValues(resultLabel(err)).Inc()
		s.logger.Warnw("Token exchange failed",
			"deviceToken", logger.MaskToken(deviceToken),
			"error", err,
			"duration", time.Since(start))
		return "", apperrors.FromExchange(err)
	}

	s.metrics.exchanges.WithLabelValues("success").Inc()
	s.logger.Infow("Token exchange succeeded",
		"deviceToken", logger.MaskToken(deviceToken),
		"registrationToken", logger.MaskToken(registrationToken),
		"duration", time.Since(start))

	return registrationToken, nil
}

// ExchangeAsync runs the exchange without blocking the caller. When a worker
// pool is configured the callback is delivered on a pool worker; a full queue
// falls back to the exchange goroutine so the outcome is never dropped.
func (s *tokenExchangeService) ExchangeAsync(ctx context.Context, deviceToken string, callback func(iid.Outcome)) {
	if deviceToken == "" {
		// Deliver the validation failure through the callback so async
		// callers observe exactly one outcome per request.
		callback(iid.Outcome{Err: apperrors.ValidationFailed("device token is required", "")})
		return
	}

	opts := []iid.AsyncOption{}
	if s.pool != nil {
		opts = append(opts, iid.WithExecutor(s.pool))
	}

	s.client.ExchangeAsync(ctx, deviceToken, func(outcome iid.Outcome) {
		if outcome.Err != nil {
			s.metrics.exchanges.WithLabelValues(resultLabel(outcome.Err)).Inc()
			s.logger.Warnw("Async token exchange failed",
				"deviceToken", logger.MaskToken(deviceToken),
				"error", outcome.Err)
			callback(iid.Outcome{Err: apperrors.FromExchange(outcome.Err)})
			return
		}

		s.metrics.exchanges.WithLabelValues("success").Inc()
		s.logger.Infow("Async token exchange succeeded",
			"deviceToken", logger.MaskToken(deviceToken),
			"registrationToken", logger.MaskToken(outcome.Token))
		callback(outcome)
	}, opts...)
}

// resultLabel maps an exchange failure to its metric label.
func resultLabel(err error) string {
	var exchErr *iid.ExchangeError
	if errors.As(err, &exchErr) {
		switch exchErr.Kind {
		case iid.KindTransportFailure:
			return "transport_failure"
		case iid.KindInvalidResponse:
			return "invalid_response"
		case iid.KindUnexpectedStatus:
			return "unexpected_status"
		case iid.KindMissingBody:
			return "missing_body"
		case iid.KindMalformedBody:
			return "malformed_body"
		}
	}
	return "error"
}
