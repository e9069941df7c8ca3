package domain

// Plan is a read-only snapshot of a source test plan.
type Plan struct {
	ID          int
	Name        string
	AreaPath    string
	Iteration   string
	State       string
	RootSuiteID int
	AssignedTo  string
}

// FirstNonEmpty returns the first non-empty display name, e.g. an owner
// given on the entity itself before one looked up from work item details.
func FirstNonEmpty(names ...string) string {
	for _, n := range names {
		if n != "" {
			return n
		}
	}
	return ""
}
