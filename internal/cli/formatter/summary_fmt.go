package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/planmigrate/internal/domain"
	"github.com/alexanderramin/planmigrate/internal/service"
)

// FormatRunResult renders the end-of-run summary: the per-kind counts and
// every entity that needs manual follow-up.
func FormatRunResult(result *service.RunResult) string {
	var b strings.Builder
	run := result.Run
	b.WriteString(Header("Migration summary"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s  %s\n\n", StatusIndicator(run.Status), Dim(run.ID), Dim(runDuration(run)))

	rows := make([][]string, 0, len(result.Summary.Counts)+1)
	for _, kind := range result.Summary.Kinds() {
		rows = append(rows, countRow(string(kind), result.Summary.Counts[kind]))
	}
	if len(rows) == 0 {
		b.WriteString(Dim("Nothing to migrate."))
		b.WriteString("\n")
	} else {
		rows = append(rows, countRow(Bold("total"), result.Summary.Totals()))
		b.WriteString(RenderTable([]string{"KIND", "CREATED", "REUSED", "SKIPPED", "FAILED"}, rows))
	}

	if run.Error != "" {
		fmt.Fprintf(&b, "\n%s %s\n", StyleRed.Render("Aborted:"), run.Error)
	}
	if len(result.Summary.Issues) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatIssues(result.Summary.Issues))
	}
	return b.String()
}

func countRow(label string, c service.KindCounts) []string {
	return []string{
		label,
		strconv.Itoa(c.Created),
		strconv.Itoa(c.Reused),
		warnIfPositive(c.Skipped, StyleYellow.Render),
		warnIfPositive(c.Failed, StyleRed.Render),
	}
}

func warnIfPositive(n int, style func(...string) string) string {
	s := strconv.Itoa(n)
	if n > 0 {
		return style(s)
	}
	return s
}

func runDuration(run *domain.Run) string {
	if run.FinishedAt == nil {
		return "running"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}

// FormatIssues lists follow-up issues, warnings in yellow and errors in red.
func FormatIssues(issues []domain.Issue) string {
	if len(issues) == 0 {
		return Dim("No issues.") + "\n"
	}
	rows := make([][]string, len(issues))
	for i, is := range issues {
		rows[i] = []string{
			SeverityStyle(is.Severity).Render(string(is.Severity)),
			string(is.Kind),
			strconv.Itoa(is.SourceID),
			is.Name,
			is.Reason,
		}
	}
	return Header("Needs follow-up") + "\n" +
		RenderTable([]string{"SEVERITY", "KIND", "SOURCE", "NAME", "REASON"}, rows)
}

// FormatRuns lists recorded runs, most recent first. Run ids are shortened;
// any unique prefix selects a run.
func FormatRuns(runs []*domain.Run, now time.Time) string {
	if len(runs) == 0 {
		return Dim("No runs recorded.") + "\n"
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			TruncID(r.ID),
			HumanTimestamp(r.StartedAt.Local(), now),
			StatusIndicator(r.Status),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Reused),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
		}
	}
	return RenderTable([]string{"RUN", "STARTED", "STATUS", "CREATED", "REUSED", "SKIPPED", "FAILED"}, rows)
}

// FormatRelations lists source to destination id mappings.
func FormatRelations(rels []domain.Relation) string {
	if len(rels) == 0 {
		return Dim("No relations recorded.") + "\n"
	}
	rows := make([][]string, len(rels))
	for i, r := range rels {
		scope := "global"
		if r.Scope != domain.GlobalScope {
			scope = "plan " + strconv.Itoa(r.Scope)
		}
		rows[i] = []string{scope, string(r.Kind), strconv.Itoa(r.SourceID), strconv.Itoa(r.DestID)}
	}
	return RenderTable([]string{"SCOPE", "KIND", "SOURCE", "DESTINATION"}, rows)
}

// FormatPlans lists source plans.
func FormatPlans(plans []domain.Plan) string {
	if len(plans) == 0 {
		return Dim("No plans found.") + "\n"
	}
	rows := make([][]string, len(plans))
	for i, p := range plans {
		rows[i] = []string{strconv.Itoa(p.ID), p.Name, p.AreaPath, p.Iteration, p.AssignedTo}
	}
	return RenderTable([]string{"ID", "NAME", "AREA", "ITERATION", "OWNER"}, rows)
}
