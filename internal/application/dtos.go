package application

import "time"

// StageDTO represents a production stage data transfer object
type StageDTO struct {
	StageID           string     `json:"stageId"`
	Name              string     `json:"name"`
	Order             int        `json:"order"`
	Status            string     `json:"status"`
	TargetQuantity    int        `json:"targetQuantity"`
	CompletedQuantity int        `json:"completedQuantity"`
	WIPQuantity       int        `json:"wipQuantity"`
	Predecessors      []string   `json:"predecessors"`
	Successors        []string   `json:"successors"`
	AssignedUserID    string     `json:"assignedUserId,omitempty"`
	SupervisorID      string     `json:"supervisorId,omitempty"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// StageStatsDTO is one row of the stage statistics aggregation
type StageStatsDTO struct {
	Status         string `json:"status"`
	Count          int64  `json:"count"`
	TotalTarget    int64  `json:"totalTarget"`
	TotalCompleted int64  `json:"totalCompleted"`
}

// StageEntryDTO represents an embedded work order stage entry
type StageEntryDTO struct {
	StageID           string     `json:"stageId"`
	Name              string     `json:"name"`
	Order             int        `json:"order"`
	CompletedQuantity int        `json:"completedQuantity"`
	Status            string     `json:"status"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// WorkOrderDTO represents a work order data transfer object
type WorkOrderDTO struct {
	WorkOrderID       string          `json:"workOrderId"`
	OrderNumber       string          `json:"orderNumber"`
	ProductName       string          `json:"productName"`
	TargetQuantity    int             `json:"targetQuantity"`
	CompletedQuantity int             `json:"completedQuantity"`
	Status            string          `json:"status"`
	Stages            []StageEntryDTO `json:"stages"`
	StartDate         *time.Time      `json:"startDate,omitempty"`
	ActualEndDate     *time.Time      `json:"actualEndDate,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}
