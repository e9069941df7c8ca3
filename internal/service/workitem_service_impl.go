package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/relation"
)

const (
	TypeTask      = "Task"
	TypeBug       = "Bug"
	TypeUserStory = "User Story"
)

// copiedFields lists, per work item type, the fields carried over verbatim.
// Area, iteration, assignee and state are handled separately.
var copiedFields = map[string][]string{
	TypeTask: {
		"Microsoft.VSTS.Scheduling.OriginalEstimate",
		"Microsoft.VSTS.Common.Activity",
		"Microsoft.VSTS.Common.StackRank",
		"Microsoft.VSTS.Scheduling.CompletedWork",
		"Microsoft.VSTS.Scheduling.RemainingWork",
		"Microsoft.VSTS.Common.Priority",
		domain.FieldDescription,
		domain.FieldTitle,
	},
	TypeBug: {
		"Microsoft.VSTS.Scheduling.OriginalEstimate",
		"Microsoft.VSTS.Common.Activity",
		"Microsoft.VSTS.Common.StackRank",
		"Microsoft.VSTS.Scheduling.CompletedWork",
		"Microsoft.VSTS.Scheduling.RemainingWork",
		"Microsoft.VSTS.Common.Priority",
		"Microsoft.VSTS.TCM.ReproSteps",
		domain.FieldTitle,
	},
	TypeUserStory: {
		"Microsoft.VSTS.Common.Priority",
		"Microsoft.VSTS.Common.StackRank",
		"Microsoft.VSTS.Common.Severity",
		domain.FieldDescription,
		domain.FieldTitle,
	},
}

// SupportedWorkItemTypes returns the types MigrateWorkItems understands.
func SupportedWorkItemTypes() []string {
	return []string{TypeTask, TypeBug, TypeUserStory}
}

type workItemService struct {
	source       SourceReader
	target       WorkItemWriter
	stores       RelationStores
	reporter     Reporter
	tr           Translator
	types        []string
	iterations   []string
	users        map[string]string
	fallbackUser string
}

func NewWorkItemService(source SourceReader, target WorkItemWriter, stores RelationStores, reporter Reporter, settings Settings) WorkItemService {
	types := settings.WorkItemTypes
	if len(types) == 0 {
		types = []string{TypeTask}
	}
	return &workItemService{
		source:       source,
		target:       target,
		stores:       stores,
		reporter:     reporterOrNoop(reporter),
		tr:           Translator{Source: settings.SourceProject, Target: settings.TargetProject},
		types:        types,
		iterations:   settings.Iterations,
		users:        settings.Users,
		fallbackUser: settings.FallbackUser,
	}
}

// MigrateWorkItems copies active and resolved work items of the configured
// types, one type after another.
func (s *workItemService) MigrateWorkItems(ctx context.Context) error {
	store, err := s.stores.Open(ctx, domain.GlobalScope)
	if err != nil {
		return err
	}
	for _, wiType := range s.types {
		if _, ok := copiedFields[wiType]; !ok {
			return fmt.Errorf("unsupported work item type %q", wiType)
		}
		if err := s.migrateType(ctx, store, wiType); err != nil {
			return err
		}
	}
	return nil
}

// BuildQuery returns the query selecting the work items of one type.
func BuildQuery(project, wiType string, iterations []string) string {
	var b strings.Builder
	b.WriteString("SELECT [System.Id] FROM WorkItems WHERE ")
	fmt.Fprintf(&b, "([%s] = '%s' OR [%s] = '%s')", domain.FieldState, domain.StateActive, domain.FieldState, domain.StateResolved)
	fmt.Fprintf(&b, " AND [%s] = '%s'", domain.FieldWorkItemType, wiqlEscape(wiType))
	if len(iterations) > 0 {
		quoted := make([]string, 0, len(iterations))
		for _, it := range iterations {
			quoted = append(quoted, "'"+wiqlEscape(domain.JoinNodePath(project, it))+"'")
		}
		fmt.Fprintf(&b, " AND [%s] IN (%s)", domain.FieldIterationPath, strings.Join(quoted, ", "))
	}
	b.WriteString(" ORDER BY [System.Id]")
	return b.String()
}

func wiqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (s *workItemService) migrateType(ctx context.Context, store *relation.Store, wiType string) error {
	op := "query for " + wiType
	ids, err := s.source.QueryWorkItems(ctx, BuildQuery(s.tr.Source, wiType, s.iterations))
	if err != nil {
		return readFailure(op, err)
	}
	if len(ids) == 0 {
		return nil
	}
	items, err := s.source.GetWorkItems(ctx, ids)
	if err != nil {
		return readFailure("details of "+wiType, err)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.migrateItem(ctx, store, wiType, item); err != nil {
			return err
		}
		s.reporter.Progress(ctx, ProgressEvent{Phase: wiType, Done: i + 1, Total: len(items)})
	}
	return nil
}

// migrateItem returns only fatal errors.
func (s *workItemService) migrateItem(ctx context.Context, store *relation.Store, wiType string, item domain.WorkItem) error {
	event := EntityEvent{Kind: domain.KindWorkItem, SourceID: item.ID, Name: item.Title()}
	skip := func(severity domain.IssueSeverity, err error) error {
		if domain.IsFatal(err) {
			return err
		}
		s.reporter.EntitySkipped(ctx, SkipEvent{
			Kind: domain.KindWorkItem, SourceID: item.ID, Name: item.Title(), Severity: severity, Err: err,
		})
		return nil
	}

	if wiType == TypeTask && domain.IsFixTask(item.Title()) {
		return skip(domain.SeverityWarning, fmt.Errorf("task %q belongs to a bug fix", item.Title()))
	}
	if dest, ok := store.Lookup(domain.KindWorkItem, item.ID); ok {
		event.DestID = dest
		s.reporter.EntityReused(ctx, event)
		return nil
	}

	fields := s.fields(ctx, wiType, item)
	dest, err := s.target.CreateWorkItem(ctx, wiType, fields)
	if err == nil {
		err = store.Record(ctx, domain.KindWorkItem, item.ID, dest)
	}
	if err != nil {
		return skip(domain.SeverityError, err)
	}
	event.DestID = dest
	s.reporter.EntityCreated(ctx, event)

	if item.State() == domain.StateResolved {
		s.replayResolved(ctx, wiType, item, dest)
	}
	return nil
}

func (s *workItemService) fields(ctx context.Context, wiType string, item domain.WorkItem) map[string]string {
	fields := make(map[string]string)
	for _, name := range copiedFields[wiType] {
		if v := item.Field(name); v != "" {
			fields[name] = v
		}
	}
	if v := item.Field(domain.FieldIterationPath); v != "" {
		fields[domain.FieldIterationPath] = s.tr.Path(v)
	}
	if v := item.Field(domain.FieldAreaPath); v != "" {
		fields[domain.FieldAreaPath] = s.tr.Path(v)
	}
	if who := s.mapUser(ctx, item); who != "" {
		fields[domain.FieldAssignedTo] = who
	}
	return fields
}

// mapUser translates the assignee. Unmapped users fall back to the
// configured fallback user with a warning.
func (s *workItemService) mapUser(ctx context.Context, item domain.WorkItem) string {
	who := item.AssignedTo()
	if who == "" {
		return ""
	}
	if mapped, ok := s.users[who]; ok {
		return mapped
	}
	s.reporter.Warning(ctx, WarningEvent{
		Kind:     domain.KindWorkItem,
		SourceID: item.ID,
		Name:     item.Title(),
		Message:  fmt.Sprintf("user %q is not in the user map, assigned to %q", who, s.fallbackUser),
	})
	return s.fallbackUser
}

// replayResolved moves a new item to the source's resolved state. Tasks go
// back to Active instead.
func (s *workItemService) replayResolved(ctx context.Context, wiType string, item domain.WorkItem, dest int) {
	state := domain.StateResolved
	if wiType == TypeTask {
		state = domain.StateActive
	}
	update := map[string]string{domain.FieldState: state}
	if reason := item.Field(domain.FieldReason); reason != "" && state == domain.StateResolved {
		update[domain.FieldReason] = reason
	}
	if err := s.target.UpdateWorkItem(ctx, dest, update); err != nil {
		s.reporter.Warning(ctx, WarningEvent{
			Kind:     domain.KindWorkItem,
			SourceID: item.ID,
			Name:     item.Title(),
			Message:  fmt.Sprintf("created as %d but could not set state %s: %v", dest, state, err),
		})
	}
}
