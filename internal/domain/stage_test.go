package domain

import (
	"testing"
	"time"
)

func TestStageStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status StageStatus
		want   bool
	}{
		{"planned is valid", StageStatusPlanned, true},
		{"in_progress is valid", StageStatusInProgress, true},
		{"completed is valid", StageStatusCompleted, true},
		{"on_hold is valid", StageStatusOnHold, true},
		{"cancelled is valid", StageStatusCancelled, true},
		{"unknown status is invalid", StageStatus("unknown"), false},
		{"empty status is invalid", StageStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("StageStatus.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewStage(t *testing.T) {
	t.Run("creates stage with valid parameters", func(t *testing.T) {
		stage, err := NewStage("stage-1", "company-1", "Cutting", 1, 100)
		if err != nil {
			t.Fatalf("NewStage() error = %v, want nil", err)
		}

		if stage.Status != StageStatusPlanned {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusPlanned)
		}
		if stage.CompletedQuantity != 0 {
			t.Errorf("CompletedQuantity = %v, want 0", stage.CompletedQuantity)
		}
		if stage.WIPQuantity != 100 {
			t.Errorf("WIPQuantity = %v, want 100", stage.WIPQuantity)
		}
		if stage.StartDate != nil {
			t.Errorf("StartDate = %v, want nil", stage.StartDate)
		}
		if len(stage.Predecessors) != 0 || len(stage.Successors) != 0 {
			t.Errorf("new stage must have empty edge lists")
		}
		if len(stage.DomainEvents) != 1 {
			t.Fatalf("DomainEvents length = %v, want 1", len(stage.DomainEvents))
		}
		if stage.DomainEvents[0].EventType() != "production.stage.created" {
			t.Errorf("event type = %v, want production.stage.created", stage.DomainEvents[0].EventType())
		}
	})

	t.Run("rejects non-positive order", func(t *testing.T) {
		if _, err := NewStage("stage-1", "company-1", "Cutting", 0, 100); err != ErrInvalidOrder {
			t.Errorf("NewStage() error = %v, want %v", err, ErrInvalidOrder)
		}
	})

	t.Run("rejects target below one", func(t *testing.T) {
		if _, err := NewStage("stage-1", "company-1", "Cutting", 1, 0); err != ErrInvalidTargetQty {
			t.Errorf("NewStage() error = %v, want %v", err, ErrInvalidTargetQty)
		}
	})
}

func TestStage_ApplyProgress(t *testing.T) {
	newStage := func(target int) *Stage {
		stage, err := NewStage("stage-1", "company-1", "Cutting", 1, target)
		if err != nil {
			t.Fatalf("NewStage() error = %v", err)
		}
		stage.ClearDomainEvents()
		return stage
	}

	t.Run("partial progress moves to in_progress and sets start date", func(t *testing.T) {
		stage := newStage(10)

		newlyCompleted := stage.ApplyProgress(3)

		if newlyCompleted {
			t.Error("newlyCompleted = true, want false")
		}
		if stage.Status != StageStatusInProgress {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusInProgress)
		}
		if stage.CompletedQuantity != 3 {
			t.Errorf("CompletedQuantity = %v, want 3", stage.CompletedQuantity)
		}
		if stage.WIPQuantity != 7 {
			t.Errorf("WIPQuantity = %v, want 7", stage.WIPQuantity)
		}
		if stage.StartDate == nil {
			t.Error("StartDate = nil, want set")
		}
	})

	t.Run("start date is set once and never overwritten", func(t *testing.T) {
		stage := newStage(10)

		stage.ApplyProgress(3)
		first := *stage.StartDate

		time.Sleep(2 * time.Millisecond)
		stage.ApplyProgress(7)

		if !stage.StartDate.Equal(first) {
			t.Errorf("StartDate changed from %v to %v on second update", first, *stage.StartDate)
		}
	})

	t.Run("quantity above target is clamped", func(t *testing.T) {
		stage := newStage(10)

		newlyCompleted := stage.ApplyProgress(999)

		if !newlyCompleted {
			t.Error("newlyCompleted = false, want true")
		}
		if stage.CompletedQuantity != 10 {
			t.Errorf("CompletedQuantity = %v, want 10", stage.CompletedQuantity)
		}
		if stage.WIPQuantity != 0 {
			t.Errorf("WIPQuantity = %v, want 0", stage.WIPQuantity)
		}
		if stage.Status != StageStatusCompleted {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusCompleted)
		}
		if stage.EndDate == nil {
			t.Error("EndDate = nil, want set")
		}
	})

	t.Run("repeat completion refreshes end date but is not newly completed", func(t *testing.T) {
		stage := newStage(10)

		stage.ApplyProgress(10)
		first := *stage.EndDate

		time.Sleep(2 * time.Millisecond)
		newlyCompleted := stage.ApplyProgress(10)

		if newlyCompleted {
			t.Error("newlyCompleted = true on repeat completion, want false")
		}
		if !stage.EndDate.After(first) {
			t.Errorf("EndDate not refreshed: was %v, still %v", first, *stage.EndDate)
		}
	})

	t.Run("zero quantity leaves status unchanged", func(t *testing.T) {
		stage := newStage(10)

		stage.ApplyProgress(0)

		if stage.Status != StageStatusPlanned {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusPlanned)
		}
		if stage.StartDate != nil {
			t.Errorf("StartDate = %v, want nil", stage.StartDate)
		}
	})

	t.Run("emits completed event only on the completing update", func(t *testing.T) {
		stage := newStage(10)

		stage.ApplyProgress(5)
		for _, e := range stage.GetDomainEvents() {
			if e.EventType() == "production.stage.completed" {
				t.Fatal("completed event emitted before target reached")
			}
		}

		stage.ClearDomainEvents()
		stage.ApplyProgress(10)

		found := false
		for _, e := range stage.GetDomainEvents() {
			if e.EventType() == "production.stage.completed" {
				found = true
			}
		}
		if !found {
			t.Error("completed event not emitted on completing update")
		}
	})
}

func TestStage_Activate(t *testing.T) {
	t.Run("activates a planned stage without timestamps", func(t *testing.T) {
		stage, _ := NewStage("stage-2", "company-1", "Welding", 2, 10)

		if !stage.Activate() {
			t.Fatal("Activate() = false, want true")
		}
		if stage.Status != StageStatusInProgress {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusInProgress)
		}
		if stage.StartDate != nil {
			t.Errorf("StartDate = %v, want nil (activation must not stamp timestamps)", stage.StartDate)
		}
	})

	t.Run("does not touch non-planned stages", func(t *testing.T) {
		for _, status := range []StageStatus{StageStatusInProgress, StageStatusCompleted, StageStatusOnHold, StageStatusCancelled} {
			stage, _ := NewStage("stage-2", "company-1", "Welding", 2, 10)
			stage.Status = status

			if stage.Activate() {
				t.Errorf("Activate() = true for status %v, want false", status)
			}
			if stage.Status != status {
				t.Errorf("Status changed from %v to %v", status, stage.Status)
			}
		}
	})
}

func TestStage_HoldResumeCancel(t *testing.T) {
	t.Run("hold and resume with recorded work returns to in_progress", func(t *testing.T) {
		stage, _ := NewStage("stage-1", "company-1", "Cutting", 1, 10)
		stage.ApplyProgress(4)

		if err := stage.Hold(); err != nil {
			t.Fatalf("Hold() error = %v", err)
		}
		if stage.Status != StageStatusOnHold {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusOnHold)
		}

		if err := stage.Resume(); err != nil {
			t.Fatalf("Resume() error = %v", err)
		}
		if stage.Status != StageStatusInProgress {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusInProgress)
		}
	})

	t.Run("resume without recorded work returns to planned", func(t *testing.T) {
		stage, _ := NewStage("stage-1", "company-1", "Cutting", 1, 10)
		_ = stage.Hold()

		if err := stage.Resume(); err != nil {
			t.Fatalf("Resume() error = %v", err)
		}
		if stage.Status != StageStatusPlanned {
			t.Errorf("Status = %v, want %v", stage.Status, StageStatusPlanned)
		}
	})

	t.Run("resume fails when not on hold", func(t *testing.T) {
		stage, _ := NewStage("stage-1", "company-1", "Cutting", 1, 10)

		if err := stage.Resume(); err != ErrStageNotOnHold {
			t.Errorf("Resume() error = %v, want %v", err, ErrStageNotOnHold)
		}
	})

	t.Run("cancel fails on completed stage", func(t *testing.T) {
		stage, _ := NewStage("stage-1", "company-1", "Cutting", 1, 10)
		stage.ApplyProgress(10)

		if err := stage.Cancel(); err != ErrStageAlreadyFinished {
			t.Errorf("Cancel() error = %v, want %v", err, ErrStageAlreadyFinished)
		}
	})
}

func TestStage_CanDelete(t *testing.T) {
	tests := []struct {
		name    string
		status  StageStatus
		wantErr error
	}{
		{"planned stage is deletable", StageStatusPlanned, nil},
		{"completed stage is deletable", StageStatusCompleted, nil},
		{"cancelled stage is deletable", StageStatusCancelled, nil},
		{"on_hold stage is deletable", StageStatusOnHold, nil},
		{"in_progress stage is not deletable", StageStatusInProgress, ErrStageInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, _ := NewStage("stage-1", "company-1", "Cutting", 1, 10)
			stage.Status = tt.status

			if err := stage.CanDelete(); err != tt.wantErr {
				t.Errorf("CanDelete() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
