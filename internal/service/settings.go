package service

// Settings carries the migration choices that are not connection details.
type Settings struct {
	SourceProject string
	TargetProject string

	// PlanIDs restricts plan migration to these source plans. Empty means all.
	PlanIDs []int

	// Iterations are iteration paths relative to the project root, e.g.
	// "Sprint 1". They restrict both iteration nodes and work items.
	// Empty means all.
	Iterations []string

	// Users maps source display names to destination display names.
	Users        map[string]string
	FallbackUser string

	WorkItemTypes []string
}
