package application

// Stage Commands

// CreateStageCommand creates a new production stage
type CreateStageCommand struct {
	Name           string   `json:"name"`
	Order          int      `json:"order"`
	TargetQuantity int      `json:"targetQuantity"`
	Predecessors   []string `json:"predecessors"`
	Successors     []string `json:"successors"`
	AssignedUserID string   `json:"assignedUserId"`
	SupervisorID   string   `json:"supervisorId"`
}

// UpdateStageCommand edits stage details
type UpdateStageCommand struct {
	StageID        string `json:"stageId"`
	Name           string `json:"name"`
	Order          int    `json:"order"`
	TargetQuantity int    `json:"targetQuantity"`
	AssignedUserID string `json:"assignedUserId"`
	SupervisorID   string `json:"supervisorId"`
}

// UpdateStageEdgesCommand replaces a stage's dependency edges
type UpdateStageEdgesCommand struct {
	StageID      string   `json:"stageId"`
	Predecessors []string `json:"predecessors"`
	Successors   []string `json:"successors"`
}

// RecordProgressCommand records a completed quantity on a stage
type RecordProgressCommand struct {
	StageID           string `json:"stageId"`
	CompletedQuantity int    `json:"completedQuantity"`
}

// Stage status actions
const (
	StatusActionHold   = "hold"
	StatusActionResume = "resume"
	StatusActionCancel = "cancel"
)

// SetStageStatusCommand applies an externally-set status transition
type SetStageStatusCommand struct {
	StageID string `json:"stageId"`
	Action  string `json:"action"`
}

// DeleteStageCommand deletes a stage
type DeleteStageCommand struct {
	StageID string `json:"stageId"`
}

// Stage Queries

// GetStageQuery retrieves a stage by ID
type GetStageQuery struct {
	StageID string `json:"stageId"`
}

// Work Order Commands

// CreateWorkOrderCommand creates a work order with stage entries snapshotted
// from the referenced stages
type CreateWorkOrderCommand struct {
	OrderNumber    string   `json:"orderNumber"`
	ProductName    string   `json:"productName"`
	TargetQuantity int      `json:"targetQuantity"`
	StageIDs       []string `json:"stageIds"`
}

// UpdateWorkOrderStageProgressCommand records progress on one embedded stage entry
type UpdateWorkOrderStageProgressCommand struct {
	WorkOrderID       string `json:"workOrderId"`
	StageID           string `json:"stageId"`
	CompletedQuantity int    `json:"completedQuantity"`
}

// CancelWorkOrderCommand cancels a work order
type CancelWorkOrderCommand struct {
	WorkOrderID string `json:"workOrderId"`
}

// GetWorkOrderQuery retrieves a work order by ID
type GetWorkOrderQuery struct {
	WorkOrderID string `json:"workOrderId"`
}
