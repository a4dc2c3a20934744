package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	ClientID string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:  []string{"localhost:9092"},
		ClientID: "production-service",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1, // All replicas
	}
}

// Topics contains all production platform Kafka topic names
var Topics = struct {
	ProductionEvents string
	WorkOrderEvents  string
	AuditEvents      string
}{
	ProductionEvents: "factory.production.events",
	WorkOrderEvents:  "factory.workorders.events",
	AuditEvents:      "factory.audit.events",
}
