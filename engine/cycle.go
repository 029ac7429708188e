package engine

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CycleState is the lifecycle stage of one calculation cycle.
type CycleState int

const (
	CycleInitializing CycleState = iota
	CycleResolving
	CycleExecuting
	CycleCollecting
	CycleComplete
	// CycleFailed is entered when the task batch cannot be submitted.
	CycleFailed
)

func (s CycleState) String() string {
	switch s {
	case CycleInitializing:
		return "INITIALIZING"
	case CycleResolving:
		return "RESOLVING"
	case CycleExecuting:
		return "EXECUTING"
	case CycleCollecting:
		return "COLLECTING"
	case CycleComplete:
		return "COMPLETE"
	case CycleFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("CycleState(%d)", int(s))
	}
}

// IsTerminal reports whether the cycle has finished.
func (s CycleState) IsTerminal() bool {
	return s == CycleComplete || s == CycleFailed
}

func isAllowedTransition(from, to CycleState) bool {
	switch from {
	case CycleInitializing:
		return to == CycleResolving
	case CycleResolving:
		return to == CycleExecuting
	case CycleExecuting:
		return to == CycleCollecting || to == CycleFailed
	case CycleCollecting:
		return to == CycleComplete
	default:
		return false
	}
}

type cycle struct {
	id     uuid.UUID
	state  CycleState
	logger *zap.Logger
}

func newCycle(logger *zap.Logger) *cycle {
	id := uuid.New()
	return &cycle{
		id:     id,
		state:  CycleInitializing,
		logger: logger.With(zap.Stringer("cycle", id)),
	}
}

// transition moves the cycle forward. Cycles never move backward; an
// invalid transition is a programming error.
func (c *cycle) transition(to CycleState) {
	if !isAllowedTransition(c.state, to) {
		panic(fmt.Sprintf("disallowed cycle transition: %s -> %s", c.state, to))
	}
	c.logger.Debug("cycle state changed",
		zap.Stringer("from", c.state),
		zap.Stringer("to", to),
	)
	c.state = to
}
