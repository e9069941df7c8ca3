package domain

import "time"

// GlobalScope is the relation scope for entities that are not owned by a
// plan (areas, iterations, plain work items, plans themselves).
const GlobalScope = 0

// Relation maps a source id to the destination id assigned on creation.
// Scope is the source plan id for suites and cases.
type Relation struct {
	Scope     int
	Kind      EntityKind
	SourceID  int
	DestID    int
	CreatedAt time.Time
}

// Run records one invocation of the migration.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Created    int
	Reused     int
	Skipped    int
	Failed     int
	Error      string
}

// Issue is an entity that needs manual follow-up after a run.
type Issue struct {
	RunID    string
	Kind     EntityKind
	SourceID int
	Name     string
	Severity IssueSeverity
	Reason   string
	At       time.Time
}
