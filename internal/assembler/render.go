package assembler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ascendhq/ascend/internal/domain"
)

var weekdayNames = map[time.Weekday]string{
	time.Sunday: "Sun", time.Monday: "Mon", time.Tuesday: "Tue", time.Wednesday: "Wed",
	time.Thursday: "Thu", time.Friday: "Fri", time.Saturday: "Sat",
}

func renderConstraints(c domain.ScheduleConstraints) []string {
	var out []string

	if c.SleepStart != "" && c.SleepEnd != "" {
		out = append(out, fmt.Sprintf("Sleep %s-%s", c.SleepStart, c.SleepEnd))
	}

	for _, b := range c.RecurringBlocks {
		label := strings.TrimSpace(b.Label)
		if label == "" {
			label = b.Kind
		}
		out = append(out, fmt.Sprintf("%s: %s %s-%s", label, renderDays(b.Days), b.Start, b.End))
	}

	for _, ex := range c.Exceptions {
		state := "unavailable"
		if ex.Available {
			state = "available"
		}
		label := strings.TrimSpace(ex.Label)
		if label == "" {
			out = append(out, fmt.Sprintf("%s: %s", ex.Date, state))
		} else {
			out = append(out, fmt.Sprintf("%s: %s (%s)", ex.Date, label, state))
		}
	}

	return out
}

func renderDays(days []time.Weekday) string {
	if len(days) == 0 {
		return "daily"
	}

	// Week is rendered Mon-first regardless of input order.
	order := func(d time.Weekday) int { return (int(d) + 6) % 7 }
	sorted := append([]time.Weekday(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return order(sorted[i]) < order(sorted[j]) })

	names := make([]string, 0, len(sorted))
	for _, d := range sorted {
		if name, ok := weekdayNames[d]; ok {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// Render serializes the snapshot into the prompt section handed to the
// reasoning service.
func (c *Context) Render() string {
	var sb strings.Builder
	sb.WriteString("CURRENT STATE (hint only; ids are authoritative, prose is not):\n")

	if c.ViewLabel != "" {
		sb.WriteString("View: " + c.ViewLabel + "\n")
	}

	if p := c.Profile; p.Role != "" || p.Bio != "" || p.Chronotype != "" || p.EnergyLevel != "" {
		sb.WriteString("Profile:")
		for _, part := range []struct{ k, v string }{
			{"role", p.Role}, {"bio", p.Bio}, {"chronotype", p.Chronotype}, {"energy", p.EnergyLevel},
		} {
			if part.v != "" {
				sb.WriteString(fmt.Sprintf(" %s=%s", part.k, part.v))
			}
		}
		sb.WriteString("\n")
	}

	if len(c.Constraints) > 0 {
		sb.WriteString("Constraints:\n")
		for _, line := range c.Constraints {
			sb.WriteString("  - " + line + "\n")
		}
	}

	for _, g := range c.Goals {
		sb.WriteString(fmt.Sprintf("Goal %s [%s] status=%s risk=%s progress=%d%%", g.Title, g.ID, g.Status, g.Risk, g.Progress))
		if g.TargetDate != "" {
			sb.WriteString(" target=" + g.TargetDate)
		}
		sb.WriteString("\n")
		if g.CurrentPhase != "" {
			sb.WriteString("  Current phase: " + g.CurrentPhase + "\n")
		}
		if len(g.ActiveMilestones) > 0 {
			sb.WriteString("  Active milestones: " + strings.Join(g.ActiveMilestones, "; ") + "\n")
		}
		sb.WriteString("  Completed milestones: " + joinOrNone(g.CompletedMilestones) + "\n")
		sb.WriteString("  Completed tasks: " + joinOrNone(g.CompletedTasks) + "\n")
		sb.WriteString("  Completed subtasks: " + joinOrNone(g.CompletedSubTasks) + "\n")
		sb.WriteString("  Pending tasks: " + joinOrNone(g.PendingTasks) + "\n")
		if len(g.Notes) > 0 {
			sb.WriteString("  Notes: " + strings.Join(g.Notes, "; ") + "\n")
		}
		for _, n := range g.Tree {
			renderNode(&sb, n, 1)
		}
	}

	if len(c.UpcomingEvents) > 0 {
		sb.WriteString("Upcoming events:\n")
		for _, e := range c.UpcomingEvents {
			sb.WriteString(fmt.Sprintf("  - %s %s-%s %s [%s]\n", e.Date, e.Start, e.End, e.Title, e.ID))
		}
	}

	return sb.String()
}

func renderNode(sb *strings.Builder, n Node, depth int) {
	mark := " "
	if n.Completed {
		mark = "x"
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(fmt.Sprintf("[%s] %s %s [%s]\n", mark, n.Kind, n.Title, n.ID))
	for _, child := range n.Children {
		renderNode(sb, child, depth+1)
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, "; ")
}
