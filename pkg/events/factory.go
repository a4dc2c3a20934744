package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/factory-platform/production-service/pkg/auth"
	"github.com/factory-platform/production-service/pkg/tenant"
)

// EventFactory creates CloudEvents for production domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new CloudEvent. Tenant and actor identifiers are
// stamped from the context when present.
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		CompanyID:       tenant.GetCompanyID(ctx),
		ActorID:         auth.ActorID(ctx),
	}
}
