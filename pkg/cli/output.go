package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func printRemembered(w io.Writer, m *model.Memory) {
	fmt.Fprintf(w, "%s #%d\n", green("✔ Saved!"), m.ID)
	if len(m.Tags) > 0 {
		fmt.Fprintf(w, "%s %s\n", yellow("Tags:"), strings.Join(m.Tags, ", "))
	}
}

func printRecall(w io.Writer, r *memory.RecallResult) {
	answer := r.Answer
	if answer == "" {
		answer = "No answer"
	}
	fmt.Fprintf(w, "\n%s\n\n", green(answer))
	fmt.Fprintln(w, blue("--------------------------------"))
	fmt.Fprintf(w, "%s %d records\n", yellow("Stats:"), r.Stats.Found)
	if len(r.Stats.Keywords) > 0 {
		fmt.Fprintf(w, "%s %s\n", yellow("Keywords:"), strings.Join(r.Stats.Keywords, ", "))
	}
	fmt.Fprintln(w)
}

func printForget(w io.Writer, r *memory.ForgetResult) {
	fmt.Fprintf(w, "\n%s\n", green(r.Answer))

	switch r.Status {
	case memory.StatusDeleted:
		ids := make([]string, 0, len(r.Deleted))
		for _, id := range r.Deleted {
			ids = append(ids, "#"+id.String())
		}
		fmt.Fprintf(w, "%s %s\n", yellow("Deleted:"), strings.Join(ids, ", "))

	case memory.StatusNoExactMatch:
		fmt.Fprintln(w, yellow("Candidates:"))
		for _, m := range r.Candidates {
			printMemoryLine(w, m)
		}

	case memory.StatusDenied:
		for _, reason := range r.Reasons {
			fmt.Fprintf(w, "%s %s\n", red("Denied:"), reason)
		}
	}
	fmt.Fprintln(w)
}

func printList(w io.Writer, r *memory.ListResult, offset int) {
	if len(r.Memories) == 0 {
		fmt.Fprintln(w, "No memories found")
		return
	}

	for _, m := range r.Memories {
		printMemoryLine(w, m)
	}
	fmt.Fprintf(w, "\nShowing %d-%d of %d\n", offset+1, offset+len(r.Memories), r.Total)
}

func printMemoryLine(w io.Writer, m *model.Memory) {
	line := fmt.Sprintf("  %s %s  %s", blue("#"+m.ID.String()), m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Text)
	if len(m.Tags) > 0 {
		line += "  " + yellow("["+strings.Join(m.Tags, ", ")+"]")
	}
	fmt.Fprintln(w, line)
}
