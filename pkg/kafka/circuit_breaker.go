package kafka

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/factory-platform/production-service/pkg/events"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/metrics"
)

// CircuitBreakerProducer wraps a Producer with circuit breaker protection so a
// broker outage does not stall mutation paths that publish events.
type CircuitBreakerProducer struct {
	producer *Producer
	breaker  *gobreaker.CircuitBreaker
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

const breakerName = "kafka-producer"

// NewCircuitBreakerProducer creates a new circuit breaker protected producer
func NewCircuitBreakerProducer(producer *Producer, logger *logging.Logger, m *metrics.Metrics) *CircuitBreakerProducer {
	cb := &CircuitBreakerProducer{
		producer: producer,
		logger:   logger,
		metrics:  m,
	}

	cb.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: cb.onStateChange,
	})

	return cb
}

func (p *CircuitBreakerProducer) onStateChange(name string, from, to gobreaker.State) {
	if p.logger != nil {
		p.logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
	}
	if p.metrics != nil {
		p.metrics.RecordCircuitBreakerState(name, int(to))
		if to == gobreaker.StateOpen {
			p.metrics.RecordCircuitBreakerTrip(name)
		}
	}
}

// PublishEvent publishes a CloudEvent with circuit breaker protection
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *events.CloudEvent) error {
	start := time.Now()
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, time.Since(start))
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, time.Since(start))
	}
	return err
}

// PublishBatch publishes multiple events with circuit breaker protection
func (p *CircuitBreakerProducer) PublishBatch(ctx context.Context, topic string, evts []*events.CloudEvent) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishBatch(ctx, topic, evts)
	})
	return err
}

// State returns the current circuit breaker state
func (p *CircuitBreakerProducer) State() gobreaker.State {
	return p.breaker.State()
}

// Close closes the underlying producer
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}
