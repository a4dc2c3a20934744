package events

import (
	"time"
)

// Event type constants for production domain events
const (
	StageCreated           = "production.stage.created"
	StageUpdated           = "production.stage.updated"
	StageEdgesUpdated      = "production.stage.edges-updated"
	StageProgressRecorded  = "production.stage.progress-recorded"
	StageCompleted         = "production.stage.completed"
	StageActivated         = "production.stage.activated"
	StageStatusChanged     = "production.stage.status-changed"
	StageDeleted           = "production.stage.deleted"
	WorkOrderCreated       = "production.workorder.created"
	WorkOrderStageProgress = "production.workorder.stage-progress"
	WorkOrderCompleted     = "production.workorder.completed"
	WorkOrderCancelled     = "production.workorder.cancelled"
)

// CloudEvent is a CloudEvents v1.0 compliant event envelope
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Extensions
	CompanyID     string `json:"companyid,omitempty"`
	ActorID       string `json:"actorid,omitempty"`
	CorrelationID string `json:"correlationid,omitempty"`
}
