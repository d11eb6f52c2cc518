// Package cycle runs the particle lifecycle of one time step on one rank:
// collisions, secondary creation, exosphere injection, the obstacle and wall
// boundaries, and migration, checking charge conservation at the end.
package cycle

import "fmt"

type Stage int

const (
	Idle Stage = iota
	Collide
	MaterializeSecondaries
	InjectExosphere
	CountBoundaryCrossings
	ComputeQrm
	DeleteInsideObstacle
	Repopulate
	Migrate
)

var stageNames = [...]string{
	Idle:                   "Idle",
	Collide:                "Collide",
	MaterializeSecondaries: "MaterializeSecondaries",
	InjectExosphere:        "InjectExosphere",
	CountBoundaryCrossings: "CountBoundaryCrossings",
	ComputeQrm:             "ComputeQrm",
	DeleteInsideObstacle:   "DeleteInsideObstacle",
	Repopulate:             "Repopulate",
	Migrate:                "Migrate",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}
