package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuite_Kind(t *testing.T) {
	static := Suite{ID: 1, Content: StaticContent{ChildIDs: []int{2}}}
	dynamic := Suite{ID: 2, Content: DynamicContent{Query: "SELECT 1"}}
	bare := Suite{ID: 3}

	assert.Equal(t, SuiteStatic, static.Kind())
	assert.Equal(t, SuiteDynamic, dynamic.Kind())
	assert.Equal(t, SuiteStatic, bare.Kind())
}

func TestSuite_Parent(t *testing.T) {
	parent := 7
	child := Suite{ID: 8, ParentID: &parent}
	root := Suite{ID: 7}

	id, ok := child.Parent()
	assert.True(t, ok)
	assert.Equal(t, 7, id)
	assert.False(t, child.IsRoot())

	_, ok = root.Parent()
	assert.False(t, ok)
	assert.True(t, root.IsRoot())
}

func TestTestCase_Owner(t *testing.T) {
	tc := TestCaseFromWorkItem(WorkItem{ID: 5, Fields: map[string]string{
		FieldTitle:      "Login works",
		FieldAssignedTo: "Jo Smith",
		FieldCreatedBy:  "Ana Lee",
		FieldSteps:      "<steps/>",
	}})
	assert.Equal(t, 5, tc.ID)
	assert.Equal(t, "Login works", tc.Title)
	assert.Equal(t, "<steps/>", tc.Steps)
	assert.Equal(t, "Assigned to: Jo Smith", tc.Owner())

	tc.AssignedTo = ""
	assert.Equal(t, "Created by: Ana Lee", tc.Owner())

	tc.CreatedBy = ""
	assert.Empty(t, tc.Owner())
}

func TestIsFixTask(t *testing.T) {
	assert.True(t, IsFixTask("Fix 1234 crash on save"))
	assert.True(t, IsFixTask("hotfix 2"))
	assert.False(t, IsFixTask("Fixture cleanup"))
	assert.False(t, IsFixTask("Implement search"))
}

func TestNodeName(t *testing.T) {
	assert.Equal(t, "Front End", NodeName("Front+End"))
	assert.Equal(t, `Proj\Web`, JoinNodePath("Proj", "Web"))
	assert.Equal(t, "Web", JoinNodePath("", "Web"))
}

func TestParseEntityKind(t *testing.T) {
	k, err := ParseEntityKind("suite")
	require.NoError(t, err)
	assert.Equal(t, KindSuite, k)

	_, err = ParseEntityKind("bogus")
	assert.Error(t, err)
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil", nil, false},
		{"auth", fmt.Errorf("open: %w", ErrAuthentication), true},
		{"read", &ReadError{Op: "plans", Err: ErrRetryExhausted}, true},
		{"structural", &StructuralIntegrityError{Kind: KindSuite, MissingID: 99, ReferencedBy: 3}, true},
		{"storage", fmt.Errorf("record: %w", ErrStorage), true},
		{"cycle", &CycleDetectedError{Chain: []int{1, 2, 1}}, true},
		{"validation", &ValidationError{Entity: "suite"}, false},
		{"parent missing", &ParentNotFoundError{ParentID: 4}, false},
		{"write transport", fmt.Errorf("create: %w", ErrTransientTransport), false},
		{"ancestor", ErrAncestorNotMigrated, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "suite parent chain forms a cycle: 1 -> 2 -> 1",
		(&CycleDetectedError{Chain: []int{1, 2, 1}}).Error())
	assert.Equal(t, "suite 3 references suite 99 which is not part of the plan",
		(&StructuralIntegrityError{Kind: KindSuite, MissingID: 99, ReferencedBy: 3}).Error())

	readErr := &ReadError{Op: "suites", Err: ErrTransientTransport}
	assert.True(t, errors.Is(readErr, ErrTransientTransport))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "Jo", FirstNonEmpty("", "Jo", "Ana"))
	assert.Empty(t, FirstNonEmpty("", ""))
}
