package domain

import "fmt"

// EntityKind names the kind of entity a relation is tracked for.
type EntityKind string

const (
	KindPlan      EntityKind = "plan"
	KindSuite     EntityKind = "suite"
	KindCase      EntityKind = "case"
	KindArea      EntityKind = "area"
	KindIteration EntityKind = "iteration"
	KindWorkItem  EntityKind = "work_item"
)

// ValidEntityKinds is the canonical set of accepted entity kind strings.
var ValidEntityKinds = map[string]bool{
	"plan": true, "suite": true, "case": true,
	"area": true, "iteration": true, "work_item": true,
}

// ParseEntityKind converts a user supplied string into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	if !ValidEntityKinds[s] {
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
	return EntityKind(s), nil
}

// SuiteKind is the wire value of a suite's type.
type SuiteKind string

const (
	SuiteStatic  SuiteKind = "StaticTestSuite"
	SuiteDynamic SuiteKind = "DynamicTestSuite"
)

// StructureType selects one of the two classification trees of a project.
type StructureType string

const (
	StructureAreas      StructureType = "areas"
	StructureIterations StructureType = "iterations"
)

// Kind returns the entity kind relations for this structure are tracked under.
func (s StructureType) Kind() EntityKind {
	if s == StructureIterations {
		return KindIteration
	}
	return KindArea
}

type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "warning"
	SeverityError   IssueSeverity = "error"
)
