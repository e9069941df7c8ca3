package domain

import "regexp"

// Field reference names used by the migration.
const (
	FieldTitle         = "System.Title"
	FieldAreaPath      = "System.AreaPath"
	FieldIterationPath = "System.IterationPath"
	FieldAssignedTo    = "System.AssignedTo"
	FieldCreatedBy     = "System.CreatedBy"
	FieldDescription   = "System.Description"
	FieldState         = "System.State"
	FieldReason        = "System.Reason"
	FieldWorkItemType  = "System.WorkItemType"
	FieldSteps         = "Microsoft.VSTS.TCM.Steps"
)

const (
	StateActive   = "Active"
	StateResolved = "Resolved"
)

// WorkItem is the generic id + field bag returned by a detail fetch.
type WorkItem struct {
	ID     int
	Fields map[string]string
}

// Field returns the named field or "" when absent.
func (w WorkItem) Field(name string) string {
	if w.Fields == nil {
		return ""
	}
	return w.Fields[name]
}

func (w WorkItem) Title() string      { return w.Field(FieldTitle) }
func (w WorkItem) AssignedTo() string { return w.Field(FieldAssignedTo) }
func (w WorkItem) State() string      { return w.Field(FieldState) }
func (w WorkItem) Type() string       { return w.Field(FieldWorkItemType) }

var fixTaskPattern = regexp.MustCompile(`[Ff]ix\s\d`)

// IsFixTask reports whether a task title marks it as a bug-fix task, which are
// not migrated on their own.
func IsFixTask(title string) bool {
	return fixTaskPattern.MatchString(title)
}

// TestCase is a source test case with the fields the destination needs.
type TestCase struct {
	ID         int
	Title      string
	AreaPath   string
	AssignedTo string
	CreatedBy  string
	Steps      string
}

// TestCaseFromWorkItem extracts the test case fields from a detail fetch.
func TestCaseFromWorkItem(w WorkItem) TestCase {
	return TestCase{
		ID:         w.ID,
		Title:      w.Field(FieldTitle),
		AreaPath:   w.Field(FieldAreaPath),
		AssignedTo: w.Field(FieldAssignedTo),
		CreatedBy:  w.Field(FieldCreatedBy),
		Steps:      w.Field(FieldSteps),
	}
}

// Owner returns the description line recording who owned the case in the
// source system, or "" when neither assignee nor creator is known.
func (c TestCase) Owner() string {
	if c.AssignedTo != "" {
		return "Assigned to: " + c.AssignedTo
	}
	if c.CreatedBy != "" {
		return "Created by: " + c.CreatedBy
	}
	return ""
}

// AssignedToLine formats the description line for plans and suites.
func AssignedToLine(who string) string {
	return "Assigned to: " + who
}
