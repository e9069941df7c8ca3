package domain

// PlanDraft is the payload for creating a destination plan.
type PlanDraft struct {
	Name        string
	AreaPath    string
	Iteration   string
	Description string
}

// DestPlan identifies a created destination plan and the root suite the
// destination made for it.
type DestPlan struct {
	ID          int
	RootSuiteID int
}

// SuiteDraft is the payload for creating a destination suite. Content
// carries the dynamic query; a static draft's child ids are not sent.
type SuiteDraft struct {
	Name        string
	Description string
	Content     SuiteContent
}

// Kind mirrors Suite.Kind for drafts.
func (d SuiteDraft) Kind() SuiteKind {
	if d.Content == nil {
		return SuiteStatic
	}
	return d.Content.suiteKind()
}

// CaseDraft is the payload for creating a destination test case.
type CaseDraft struct {
	Title       string
	AreaPath    string
	Description string
	Steps       string
}
