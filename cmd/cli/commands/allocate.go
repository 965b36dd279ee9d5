package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/core/services"
)

// AllocateCmd creates the allocate command
func AllocateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "allocate [date]",
		Short: "Allocate boats and batteries to pending bookings for a date",
		Long: `Runs one allocation for the given date (YYYY-MM-DD). Without a date the target is
today plus the configured lookahead, the same date the scheduler would choose.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := allocationDate(app, args)
			if err != nil {
				return err
			}

			var done cleanup
			defer done.run()

			registry, err := buildRegistry(app, nil, &done)
			if err != nil {
				return err
			}
			locker, _, err := buildLocker(app, &done)
			if err != nil {
				return err
			}
			allocation, err := newDailyAllocation(app, registry, locker)
			if err != nil {
				return err
			}

			result, err := allocation.RunDailyAllocation(app.Ctx, date)
			if err != nil {
				return err
			}

			printRunResult(cmd, result)
			return nil
		},
	}
}

func allocationDate(app *AppContext, args []string) (model.Date, error) {
	if len(args) == 1 {
		return model.ParseDate(args[0])
	}
	today, err := app.Today()
	if err != nil {
		return model.Date{}, err
	}
	return today.AddDays(app.Cfg.LookaheadDays), nil
}

func printRunResult(cmd *cobra.Command, result *services.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nAllocation for %s\n\n", result.Date)
	fmt.Fprintf(out, "Pending:       %d\n", result.Pending)
	fmt.Fprintf(out, "Assigned:      %d\n", len(result.Assignments))
	fmt.Fprintf(out, "Unallocatable: %d\n", len(result.Unallocatable))

	if len(result.Assignments) > 0 {
		fmt.Fprintf(out, "\nAssignments:\n")
		for _, a := range result.Assignments {
			fmt.Fprintf(out, "  %-10s %s  boat %s  battery %s\n", a.Slot, a.BookingID, a.BoatID, a.BatteryID)
		}
	}
	if len(result.Unallocatable) > 0 {
		fmt.Fprintf(out, "\nNot allocated:\n")
		for _, u := range result.Unallocatable {
			fmt.Fprintf(out, "  %-10s %s  %s\n", u.Slot, u.BookingID, u.Reason)
		}
	}
	if len(result.Resolved) > 0 {
		fmt.Fprintf(out, "\nResolved elsewhere during the run: %s\n", strings.Join(result.Resolved, ", "))
	}
	if len(result.SkippedSlots) > 0 {
		fmt.Fprintf(out, "\nSkipped slots (%d bookings left pending):\n", result.SkippedBookings())
		for _, s := range result.SkippedSlots {
			fmt.Fprintf(out, "  %-10s %v\n", s.Slot, s.Err)
		}
	}
	fmt.Fprintln(out)
}
