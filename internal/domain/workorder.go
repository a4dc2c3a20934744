package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Work order errors
var (
	ErrStageEntryNotFound     = errors.New("stage entry not found in work order")
	ErrWorkOrderFinished      = errors.New("work order is already completed or cancelled")
	ErrWorkOrderNeedsStages   = errors.New("work order requires at least one stage entry")
	ErrInvalidWorkOrderTarget = errors.New("work order target quantity must be at least 1")
)

// WorkOrderStatus represents the lifecycle status of a work order
type WorkOrderStatus string

const (
	WorkOrderStatusDraft     WorkOrderStatus = "draft"
	WorkOrderStatusActive    WorkOrderStatus = "active"
	WorkOrderStatusCompleted WorkOrderStatus = "completed"
	WorkOrderStatusCancelled WorkOrderStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s WorkOrderStatus) IsValid() bool {
	switch s {
	case WorkOrderStatusDraft, WorkOrderStatusActive, WorkOrderStatusCompleted, WorkOrderStatusCancelled:
		return true
	default:
		return false
	}
}

// StageEntryStatus represents the status of an embedded stage entry
type StageEntryStatus string

const (
	StageEntryPending    StageEntryStatus = "pending"
	StageEntryInProgress StageEntryStatus = "in_progress"
	StageEntryCompleted  StageEntryStatus = "completed"
	StageEntrySkipped    StageEntryStatus = "skipped"
)

// StageEntry is a stage execution embedded in a work order, snapshotted from
// the stage at creation time
type StageEntry struct {
	StageID           string           `bson:"stageId" json:"stageId"`
	Name              string           `bson:"name" json:"name"`
	Order             int              `bson:"order" json:"order"`
	CompletedQuantity int              `bson:"completedQuantity" json:"completedQuantity"`
	Status            StageEntryStatus `bson:"status" json:"status"`
	StartedAt         *time.Time       `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt       *time.Time       `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// WorkOrder is an instance of production against a target quantity, composed
// of an ordered set of stage executions
type WorkOrder struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	WorkOrderID       string             `bson:"workOrderId"`
	CompanyID         string             `bson:"companyId"`
	OrderNumber       string             `bson:"orderNumber"`
	ProductName       string             `bson:"productName"`
	TargetQuantity    int                `bson:"targetQuantity"`
	CompletedQuantity int                `bson:"completedQuantity"`
	Status            WorkOrderStatus    `bson:"status"`
	Stages            []StageEntry       `bson:"stages"`
	StartDate         *time.Time         `bson:"startDate,omitempty"`
	ActualEndDate     *time.Time         `bson:"actualEndDate,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
	DomainEvents      []DomainEvent      `bson:"-"`
}

// NewWorkOrder creates a new WorkOrder aggregate with its stage entries
func NewWorkOrder(workOrderID, companyID, orderNumber, productName string, targetQuantity int, stages []StageEntry) (*WorkOrder, error) {
	if targetQuantity < 1 {
		return nil, ErrInvalidWorkOrderTarget
	}
	if len(stages) == 0 {
		return nil, ErrWorkOrderNeedsStages
	}

	now := time.Now()
	wo := &WorkOrder{
		WorkOrderID:       workOrderID,
		CompanyID:         companyID,
		OrderNumber:       orderNumber,
		ProductName:       productName,
		TargetQuantity:    targetQuantity,
		CompletedQuantity: 0,
		Status:            WorkOrderStatusDraft,
		Stages:            stages,
		CreatedAt:         now,
		UpdatedAt:         now,
		DomainEvents:      make([]DomainEvent, 0),
	}

	wo.AddDomainEvent(&WorkOrderCreatedEvent{
		WorkOrderID:    workOrderID,
		CompanyID:      companyID,
		OrderNumber:    orderNumber,
		TargetQuantity: targetQuantity,
		StageCount:     len(stages),
		CreatedAt:      now,
	})

	return wo, nil
}

// UpdateStageProgress records progress on one embedded stage entry and
// recomputes the work order's overall progress.
//
// The entry's completion is compared against the work order's overall target
// quantity, not a per-stage target, and the overall completed quantity is the
// average of the entries capped at the target. Both rules are longstanding
// behavior that downstream reporting depends on; do not change them without
// migrating consumers.
func (w *WorkOrder) UpdateStageProgress(stageID string, completedQuantity int) error {
	entry := w.findStageEntry(stageID)
	if entry == nil {
		return ErrStageEntryNotFound
	}

	now := time.Now()
	entry.CompletedQuantity = completedQuantity

	if entry.Status == StageEntryPending && completedQuantity > 0 {
		entry.Status = StageEntryInProgress
		entry.StartedAt = &now
	}
	if completedQuantity >= w.TargetQuantity {
		entry.Status = StageEntryCompleted
		entry.CompletedAt = &now
	}

	sum := 0
	for _, s := range w.Stages {
		sum += s.CompletedQuantity
	}
	overall := sum / len(w.Stages)
	if overall > w.TargetQuantity {
		overall = w.TargetQuantity
	}
	w.CompletedQuantity = overall
	w.UpdatedAt = now

	w.AddDomainEvent(&WorkOrderStageProgressEvent{
		WorkOrderID:       w.WorkOrderID,
		CompanyID:         w.CompanyID,
		StageID:           stageID,
		CompletedQuantity: completedQuantity,
		OverallCompleted:  overall,
		RecordedAt:        now,
	})

	if w.allStagesCompleted() {
		w.Status = WorkOrderStatusCompleted
		w.ActualEndDate = &now

		w.AddDomainEvent(&WorkOrderCompletedEvent{
			WorkOrderID: w.WorkOrderID,
			CompanyID:   w.CompanyID,
			CompletedAt: now,
		})
	} else if overall > 0 && w.Status == WorkOrderStatusDraft {
		w.Status = WorkOrderStatusActive
		if w.StartDate == nil {
			w.StartDate = &now
		}
	}

	return nil
}

// Cancel cancels a work order that has not finished yet
func (w *WorkOrder) Cancel() error {
	if w.Status == WorkOrderStatusCompleted || w.Status == WorkOrderStatusCancelled {
		return ErrWorkOrderFinished
	}

	w.Status = WorkOrderStatusCancelled
	w.UpdatedAt = time.Now()

	w.AddDomainEvent(&WorkOrderCancelledEvent{
		WorkOrderID: w.WorkOrderID,
		CompanyID:   w.CompanyID,
		CancelledAt: w.UpdatedAt,
	})

	return nil
}

func (w *WorkOrder) findStageEntry(stageID string) *StageEntry {
	for i := range w.Stages {
		if w.Stages[i].StageID == stageID {
			return &w.Stages[i]
		}
	}
	return nil
}

func (w *WorkOrder) allStagesCompleted() bool {
	for _, s := range w.Stages {
		if s.Status != StageEntryCompleted {
			return false
		}
	}
	return true
}

// AddDomainEvent adds a domain event
func (w *WorkOrder) AddDomainEvent(event DomainEvent) {
	w.DomainEvents = append(w.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (w *WorkOrder) ClearDomainEvents() {
	w.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (w *WorkOrder) GetDomainEvents() []DomainEvent {
	return w.DomainEvents
}

// Work Order Domain Events

// WorkOrderCreatedEvent is emitted when a work order is created
type WorkOrderCreatedEvent struct {
	WorkOrderID    string    `json:"workOrderId"`
	CompanyID      string    `json:"companyId"`
	OrderNumber    string    `json:"orderNumber"`
	TargetQuantity int       `json:"targetQuantity"`
	StageCount     int       `json:"stageCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e *WorkOrderCreatedEvent) EventType() string     { return "production.workorder.created" }
func (e *WorkOrderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// WorkOrderStageProgressEvent is emitted when a stage entry records progress
type WorkOrderStageProgressEvent struct {
	WorkOrderID       string    `json:"workOrderId"`
	CompanyID         string    `json:"companyId"`
	StageID           string    `json:"stageId"`
	CompletedQuantity int       `json:"completedQuantity"`
	OverallCompleted  int       `json:"overallCompleted"`
	RecordedAt        time.Time `json:"recordedAt"`
}

func (e *WorkOrderStageProgressEvent) EventType() string     { return "production.workorder.stage-progress" }
func (e *WorkOrderStageProgressEvent) OccurredAt() time.Time { return e.RecordedAt }

// WorkOrderCompletedEvent is emitted when every stage entry is completed
type WorkOrderCompletedEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	CompanyID   string    `json:"companyId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *WorkOrderCompletedEvent) EventType() string     { return "production.workorder.completed" }
func (e *WorkOrderCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// WorkOrderCancelledEvent is emitted when a work order is cancelled
type WorkOrderCancelledEvent struct {
	WorkOrderID string    `json:"workOrderId"`
	CompanyID   string    `json:"companyId"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *WorkOrderCancelledEvent) EventType() string     { return "production.workorder.cancelled" }
func (e *WorkOrderCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }
