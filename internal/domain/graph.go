package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrCircularDependency is returned when an edge mutation would create a cycle
var ErrCircularDependency = errors.New("circular dependency detected")

// StageLoader fetches a stage by id within the caller's tenant scope.
// A nil stage with a nil error means the id dangles (referenced stage was
// deleted); traversal skips it.
type StageLoader func(ctx context.Context, stageID string) (*Stage, error)

// ValidateAcyclic checks that following successor edges from the given stage
// never revisits a stage already on the current traversal path. It must run
// whenever edge fields change, before the stage is persisted. A stage listing
// itself as its own successor is a 1-node cycle and is rejected.
//
// The loader is expected to be tenant-scoped; the traversal never crosses
// company boundaries.
func ValidateAcyclic(ctx context.Context, stage *Stage, load StageLoader) error {
	onPath := make(map[string]bool)
	explored := make(map[string]bool)

	var visit func(id string, successors []string) error
	visit = func(id string, successors []string) error {
		onPath[id] = true

		for _, succID := range successors {
			if onPath[succID] {
				return ErrCircularDependency
			}
			if explored[succID] {
				continue
			}

			succ, err := load(ctx, succID)
			if err != nil {
				return fmt.Errorf("failed to load stage %s during cycle check: %w", succID, err)
			}
			if succ == nil {
				// dangling edge, nothing downstream to walk
				continue
			}

			if err := visit(succID, succ.Successors); err != nil {
				return err
			}
		}

		onPath[id] = false
		explored[id] = true
		return nil
	}

	return visit(stage.StageID, stage.Successors)
}
