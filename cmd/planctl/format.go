package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"weekplan/pkg/calendar"
	"weekplan/pkg/overdue"
	"weekplan/pkg/weekly"
)

func dayLabel(day int) string {
	if name := calendar.DayName(day); name != "" {
		return name
	}
	return "-"
}

func writeWeek(w io.Writer, tasks []weekly.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWEEK\tDAY\tDONE\tPRIORITY\tTITLE")
	for _, t := range tasks {
		done := " "
		if t.IsCompleted {
			done = "x"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", t.ID, t.WeekNumber, dayLabel(t.Day()), done, t.Priority, t.Title)
	}
	return tw.Flush()
}

func writeOverdue(w io.Writer, today calendar.Position, tasks []overdue.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintf(w, "Nothing overdue as of %s.\n", today)
		return err
	}
	fmt.Fprintf(w, "%d overdue as of %s:\n", len(tasks), today)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDAYS\tWAS\tTITLE")
	for _, t := range tasks {
		day := 0
		if t.OriginalDayOfWeek != nil {
			day = *t.OriginalDayOfWeek
		}
		fmt.Fprintf(tw, "%s\t%d\tW%02d %s\t%s\n", t.ID, t.DaysOverdue, t.OriginalWeekNumber, dayLabel(day), t.Title)
	}
	return tw.Flush()
}
