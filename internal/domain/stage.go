package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stage errors
var (
	ErrInvalidStageStatus   = errors.New("invalid stage status")
	ErrInvalidTargetQty     = errors.New("target quantity must be at least 1")
	ErrInvalidOrder         = errors.New("order must be a positive integer")
	ErrNegativeQuantity     = errors.New("invalid completed quantity: must not be negative")
	ErrStageInProgress      = errors.New("stage is in progress and cannot be deleted")
	ErrStageNotOnHold       = errors.New("stage is not on hold")
	ErrStageAlreadyFinished = errors.New("stage is already completed or cancelled")
)

// StageStatus represents the lifecycle status of a production stage
type StageStatus string

const (
	StageStatusPlanned    StageStatus = "planned"
	StageStatusInProgress StageStatus = "in_progress"
	StageStatusCompleted  StageStatus = "completed"
	StageStatusOnHold     StageStatus = "on_hold"
	StageStatusCancelled  StageStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s StageStatus) IsValid() bool {
	switch s {
	case StageStatusPlanned, StageStatusInProgress, StageStatusCompleted,
		StageStatusOnHold, StageStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status ends the stage's lifecycle
func (s StageStatus) IsTerminal() bool {
	return s == StageStatusCompleted || s == StageStatusCancelled
}

// Stage represents one step in a manufacturing process. Dependency edges are
// held as id adjacency lists; all referenced stages belong to the same company.
type Stage struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	StageID           string             `bson:"stageId"`
	CompanyID         string             `bson:"companyId"`
	Name              string             `bson:"name"`
	Order             int                `bson:"order"`
	Status            StageStatus        `bson:"status"`
	TargetQuantity    int                `bson:"targetQuantity"`
	CompletedQuantity int                `bson:"completedQuantity"`
	WIPQuantity       int                `bson:"wipQuantity"`
	Predecessors      []string           `bson:"predecessors"`
	Successors        []string           `bson:"successors"`
	AssignedUserID    string             `bson:"assignedUserId,omitempty"`
	SupervisorID      string             `bson:"supervisorId,omitempty"`
	StartDate         *time.Time         `bson:"startDate,omitempty"`
	EndDate           *time.Time         `bson:"endDate,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
	DomainEvents      []DomainEvent      `bson:"-"`
}

// NewStage creates a new Stage aggregate
func NewStage(stageID, companyID, name string, order, targetQuantity int) (*Stage, error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}
	if targetQuantity < 1 {
		return nil, ErrInvalidTargetQty
	}

	now := time.Now()
	stage := &Stage{
		StageID:           stageID,
		CompanyID:         companyID,
		Name:              name,
		Order:             order,
		Status:            StageStatusPlanned,
		TargetQuantity:    targetQuantity,
		CompletedQuantity: 0,
		WIPQuantity:       targetQuantity,
		Predecessors:      make([]string, 0),
		Successors:        make([]string, 0),
		CreatedAt:         now,
		UpdatedAt:         now,
		DomainEvents:      make([]DomainEvent, 0),
	}

	stage.AddDomainEvent(&StageCreatedEvent{
		StageID:        stageID,
		CompanyID:      companyID,
		Name:           name,
		TargetQuantity: targetQuantity,
		CreatedAt:      now,
	})

	return stage, nil
}

// ApplyProgress records a new completed quantity on the stage and returns
// whether this update moved the stage into completed for the first time.
// Negative quantities must be rejected by the caller before this point.
//
// Quantities above target are clamped. A repeat update at or above target
// refreshes EndDate; StartDate is only ever set once. A zero quantity leaves
// the status untouched.
func (s *Stage) ApplyProgress(completedQuantity int) bool {
	previous := s.CompletedQuantity
	now := time.Now()

	if completedQuantity > s.TargetQuantity {
		completedQuantity = s.TargetQuantity
	}

	s.CompletedQuantity = completedQuantity
	s.WIPQuantity = s.TargetQuantity - completedQuantity
	if s.WIPQuantity < 0 {
		s.WIPQuantity = 0
	}
	s.UpdatedAt = now

	newlyCompleted := false

	switch {
	case completedQuantity >= s.TargetQuantity:
		s.Status = StageStatusCompleted
		s.EndDate = &now
		newlyCompleted = previous < s.TargetQuantity
	case completedQuantity > 0:
		s.Status = StageStatusInProgress
		if s.StartDate == nil {
			s.StartDate = &now
		}
	}

	s.AddDomainEvent(&StageProgressRecordedEvent{
		StageID:           s.StageID,
		CompanyID:         s.CompanyID,
		CompletedQuantity: s.CompletedQuantity,
		TargetQuantity:    s.TargetQuantity,
		Status:            string(s.Status),
		RecordedAt:        now,
	})

	if newlyCompleted {
		s.AddDomainEvent(&StageCompletedEvent{
			StageID:     s.StageID,
			CompanyID:   s.CompanyID,
			CompletedAt: now,
		})
	}

	return newlyCompleted
}

// Activate flips a planned successor to in_progress as part of the one-level
// cascade after a predecessor completes. It deliberately does not stamp
// StartDate; only a direct progress update does that. Returns whether the
// stage changed.
func (s *Stage) Activate() bool {
	if s.Status != StageStatusPlanned {
		return false
	}

	s.Status = StageStatusInProgress
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&StageActivatedEvent{
		StageID:     s.StageID,
		CompanyID:   s.CompanyID,
		ActivatedAt: s.UpdatedAt,
	})

	return true
}

// SetEdges replaces the stage's dependency edges. Acyclicity is validated
// by the application layer before the stage is persisted.
func (s *Stage) SetEdges(predecessors, successors []string) {
	if predecessors == nil {
		predecessors = make([]string, 0)
	}
	if successors == nil {
		successors = make([]string, 0)
	}

	s.Predecessors = predecessors
	s.Successors = successors
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&StageEdgesUpdatedEvent{
		StageID:      s.StageID,
		CompanyID:    s.CompanyID,
		Predecessors: predecessors,
		Successors:   successors,
		UpdatedAt:    s.UpdatedAt,
	})
}

// UpdateDetails applies field-level edits. Zero values leave the field
// unchanged. Lowering the target below the recorded quantity is rejected.
func (s *Stage) UpdateDetails(name string, order, targetQuantity int, assignedUserID, supervisorID string) error {
	if order < 0 {
		return ErrInvalidOrder
	}
	if targetQuantity != 0 {
		if targetQuantity < 1 {
			return ErrInvalidTargetQty
		}
		if targetQuantity < s.CompletedQuantity {
			return ErrInvalidTargetQty
		}
		s.TargetQuantity = targetQuantity
		s.WIPQuantity = s.TargetQuantity - s.CompletedQuantity
	}
	if name != "" {
		s.Name = name
	}
	if order > 0 {
		s.Order = order
	}
	if assignedUserID != "" {
		s.AssignedUserID = assignedUserID
	}
	if supervisorID != "" {
		s.SupervisorID = supervisorID
	}
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&StageUpdatedEvent{
		StageID:   s.StageID,
		CompanyID: s.CompanyID,
		UpdatedAt: s.UpdatedAt,
	})

	return nil
}

// Hold places an active or planned stage on hold
func (s *Stage) Hold() error {
	if s.Status.IsTerminal() {
		return ErrStageAlreadyFinished
	}

	s.setStatus(StageStatusOnHold)
	return nil
}

// Resume takes a stage off hold, returning it to in_progress if work was
// already recorded and planned otherwise
func (s *Stage) Resume() error {
	if s.Status != StageStatusOnHold {
		return ErrStageNotOnHold
	}

	if s.CompletedQuantity > 0 {
		s.setStatus(StageStatusInProgress)
	} else {
		s.setStatus(StageStatusPlanned)
	}
	return nil
}

// Cancel cancels a stage that has not finished yet
func (s *Stage) Cancel() error {
	if s.Status.IsTerminal() {
		return ErrStageAlreadyFinished
	}

	s.setStatus(StageStatusCancelled)
	return nil
}

func (s *Stage) setStatus(status StageStatus) {
	oldStatus := s.Status
	s.Status = status
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(&StageStatusChangedEvent{
		StageID:   s.StageID,
		CompanyID: s.CompanyID,
		OldStatus: string(oldStatus),
		NewStatus: string(status),
		ChangedAt: s.UpdatedAt,
	})
}

// CanDelete reports whether the stage may be physically deleted.
// An in_progress stage is never deletable.
func (s *Stage) CanDelete() error {
	if s.Status == StageStatusInProgress {
		return ErrStageInProgress
	}
	return nil
}

// AddDomainEvent adds a domain event
func (s *Stage) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (s *Stage) ClearDomainEvents() {
	s.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns all domain events
func (s *Stage) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}

// Stage Domain Events

// StageCreatedEvent is emitted when a stage is created
type StageCreatedEvent struct {
	StageID        string    `json:"stageId"`
	CompanyID      string    `json:"companyId"`
	Name           string    `json:"name"`
	TargetQuantity int       `json:"targetQuantity"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (e *StageCreatedEvent) EventType() string     { return "production.stage.created" }
func (e *StageCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// StageUpdatedEvent is emitted when stage details are edited
type StageUpdatedEvent struct {
	StageID   string    `json:"stageId"`
	CompanyID string    `json:"companyId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e *StageUpdatedEvent) EventType() string     { return "production.stage.updated" }
func (e *StageUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// StageProgressRecordedEvent is emitted on every progress update
type StageProgressRecordedEvent struct {
	StageID           string    `json:"stageId"`
	CompanyID         string    `json:"companyId"`
	CompletedQuantity int       `json:"completedQuantity"`
	TargetQuantity    int       `json:"targetQuantity"`
	Status            string    `json:"status"`
	RecordedAt        time.Time `json:"recordedAt"`
}

func (e *StageProgressRecordedEvent) EventType() string     { return "production.stage.progress-recorded" }
func (e *StageProgressRecordedEvent) OccurredAt() time.Time { return e.RecordedAt }

// StageCompletedEvent is emitted when a stage reaches its target for the first time
type StageCompletedEvent struct {
	StageID     string    `json:"stageId"`
	CompanyID   string    `json:"companyId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (e *StageCompletedEvent) EventType() string     { return "production.stage.completed" }
func (e *StageCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }

// StageActivatedEvent is emitted when a successor is auto-activated
type StageActivatedEvent struct {
	StageID     string    `json:"stageId"`
	CompanyID   string    `json:"companyId"`
	ActivatedAt time.Time `json:"activatedAt"`
}

func (e *StageActivatedEvent) EventType() string     { return "production.stage.activated" }
func (e *StageActivatedEvent) OccurredAt() time.Time { return e.ActivatedAt }

// StageEdgesUpdatedEvent is emitted when dependency edges change
type StageEdgesUpdatedEvent struct {
	StageID      string    `json:"stageId"`
	CompanyID    string    `json:"companyId"`
	Predecessors []string  `json:"predecessors"`
	Successors   []string  `json:"successors"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (e *StageEdgesUpdatedEvent) EventType() string     { return "production.stage.edges-updated" }
func (e *StageEdgesUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// StageStatusChangedEvent is emitted when stage status changes outside of progress updates
type StageStatusChangedEvent struct {
	StageID   string    `json:"stageId"`
	CompanyID string    `json:"companyId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ChangedAt time.Time `json:"changedAt"`
}

func (e *StageStatusChangedEvent) EventType() string     { return "production.stage.status-changed" }
func (e *StageStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// StageDeletedEvent is emitted when a stage is deleted
type StageDeletedEvent struct {
	StageID   string    `json:"stageId"`
	CompanyID string    `json:"companyId"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (e *StageDeletedEvent) EventType() string     { return "production.stage.deleted" }
func (e *StageDeletedEvent) OccurredAt() time.Time { return e.DeletedAt }
