package application

import (
	"github.com/factory-platform/production-service/internal/domain"
)

// ToStageDTO converts a domain Stage to a StageDTO
func ToStageDTO(stage *domain.Stage) *StageDTO {
	return &StageDTO{
		StageID:           stage.StageID,
		Name:              stage.Name,
		Order:             stage.Order,
		Status:            string(stage.Status),
		TargetQuantity:    stage.TargetQuantity,
		CompletedQuantity: stage.CompletedQuantity,
		WIPQuantity:       stage.WIPQuantity,
		Predecessors:      stage.Predecessors,
		Successors:        stage.Successors,
		AssignedUserID:    stage.AssignedUserID,
		SupervisorID:      stage.SupervisorID,
		StartDate:         stage.StartDate,
		EndDate:           stage.EndDate,
		CreatedAt:         stage.CreatedAt,
		UpdatedAt:         stage.UpdatedAt,
	}
}

// ToStageDTOs converts a slice of domain Stages to DTOs
func ToStageDTOs(stages []*domain.Stage) []StageDTO {
	dtos := make([]StageDTO, len(stages))
	for i, stage := range stages {
		dtos[i] = *ToStageDTO(stage)
	}
	return dtos
}

// ToStageStatsDTOs converts aggregation buckets to DTOs
func ToStageStatsDTOs(buckets []StageStatsBucket) []StageStatsDTO {
	dtos := make([]StageStatsDTO, len(buckets))
	for i, b := range buckets {
		dtos[i] = StageStatsDTO{
			Status:         b.Status,
			Count:          b.Count,
			TotalTarget:    b.TotalTarget,
			TotalCompleted: b.TotalCompleted,
		}
	}
	return dtos
}

// ToStageEntryDTO converts a domain StageEntry to a DTO
func ToStageEntryDTO(entry domain.StageEntry) StageEntryDTO {
	return StageEntryDTO{
		StageID:           entry.StageID,
		Name:              entry.Name,
		Order:             entry.Order,
		CompletedQuantity: entry.CompletedQuantity,
		Status:            string(entry.Status),
		StartedAt:         entry.StartedAt,
		CompletedAt:       entry.CompletedAt,
	}
}

// ToWorkOrderDTO converts a domain WorkOrder to a WorkOrderDTO
func ToWorkOrderDTO(wo *domain.WorkOrder) *WorkOrderDTO {
	entries := make([]StageEntryDTO, len(wo.Stages))
	for i, e := range wo.Stages {
		entries[i] = ToStageEntryDTO(e)
	}

	return &WorkOrderDTO{
		WorkOrderID:       wo.WorkOrderID,
		OrderNumber:       wo.OrderNumber,
		ProductName:       wo.ProductName,
		TargetQuantity:    wo.TargetQuantity,
		CompletedQuantity: wo.CompletedQuantity,
		Status:            string(wo.Status),
		Stages:            entries,
		StartDate:         wo.StartDate,
		ActualEndDate:     wo.ActualEndDate,
		CreatedAt:         wo.CreatedAt,
		UpdatedAt:         wo.UpdatedAt,
	}
}

// ToWorkOrderDTOs converts a slice of domain WorkOrders to DTOs
func ToWorkOrderDTOs(workOrders []*domain.WorkOrder) []WorkOrderDTO {
	dtos := make([]WorkOrderDTO, len(workOrders))
	for i, wo := range workOrders {
		dtos[i] = *ToWorkOrderDTO(wo)
	}
	return dtos
}
