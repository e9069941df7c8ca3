package domain

// Suite is a node of a plan's suite tree. Content carries the kind-specific
// part: StaticContent or DynamicContent.
type Suite struct {
	ID         int
	PlanID     int
	Name       string
	ParentID   *int // nil only for the plan's root suite
	AssignedTo string
	Content    SuiteContent
}

// SuiteContent is implemented by StaticContent and DynamicContent only.
type SuiteContent interface {
	suiteKind() SuiteKind
}

// StaticContent holds explicit child suites. Cases are fetched separately.
type StaticContent struct {
	ChildIDs []int
}

func (StaticContent) suiteKind() SuiteKind { return SuiteStatic }

// DynamicContent defines membership through a work item query.
type DynamicContent struct {
	Query string
}

func (DynamicContent) suiteKind() SuiteKind { return SuiteDynamic }

// Kind reports the suite's kind. A suite without content is treated as static.
func (s *Suite) Kind() SuiteKind {
	if s.Content == nil {
		return SuiteStatic
	}
	return s.Content.suiteKind()
}

// IsRoot reports whether the suite is the implicit root of its plan.
func (s *Suite) IsRoot() bool {
	return s.ParentID == nil
}

// Parent returns the parent id and whether the suite has one.
func (s *Suite) Parent() (int, bool) {
	if s.ParentID == nil {
		return 0, false
	}
	return *s.ParentID, true
}
