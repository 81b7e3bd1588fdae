package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/campus-support/internal/tat"
)

var (
	deadlinesSLA      string
	deadlinesStart    string
	deadlinesTimezone string
)

var deadlinesCmd = &cobra.Command{
	Use:   "deadlines",
	Short: "Print acknowledgement and resolution deadlines for an SLA",
	Example: `  tatctl deadlines --sla 48
  tatctl deadlines --sla "2 days" --start 2025-01-03T11:00:00Z`,
	RunE: runDeadlines,
}

func init() {
	deadlinesCmd.Flags().StringVar(&deadlinesSLA, "sla", "48", "SLA as hours or a duration such as \"2 days\"")
	deadlinesCmd.Flags().StringVar(&deadlinesStart, "start", "", "RFC3339 start instant (default now)")
	deadlinesCmd.Flags().StringVar(&deadlinesTimezone, "tz", "UTC", "calendar time zone")
	rootCmd.AddCommand(deadlinesCmd)
}

type deadlinesOutput struct {
	SLAHours             float64   `json:"sla_hours"`
	Start                time.Time `json:"start"`
	AcknowledgementDueAt time.Time `json:"acknowledgement_due_at"`
	ResolutionDueAt      time.Time `json:"resolution_due_at"`
}

func runDeadlines(cmd *cobra.Command, _ []string) error {
	hours, err := tat.ParseTAT(deadlinesSLA)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(deadlinesTimezone)
	if err != nil {
		return fmt.Errorf("load time zone: %w", err)
	}
	calendar := tat.NewCalendar(loc, nil)

	start := calendar.Now()
	if deadlinesStart != "" {
		start, err = time.Parse(time.RFC3339, deadlinesStart)
		if err != nil {
			return fmt.Errorf("parse --start: %w", err)
		}
	}

	d := calendar.CalculateDeadlines(hours, start)
	return writeJSON(cmd.OutOrStdout(), deadlinesOutput{
		SLAHours:             hours,
		Start:                start,
		AcknowledgementDueAt: d.AcknowledgementDueAt,
		ResolutionDueAt:      d.ResolutionDueAt,
	})
}
