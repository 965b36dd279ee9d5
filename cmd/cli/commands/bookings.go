package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/core/services"
)

// BookCmd creates the book command
func BookCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "book <user> <date> <slot>",
		Short: "Create a booking for a user, date (YYYY-MM-DD) and slot",
		Long:  "Slots: Morning, Afternoon, Evening or None. Equipment is assigned by the next allocation run.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := model.ParseDate(args[1])
			if err != nil {
				return err
			}
			slot, err := model.ParseTimeSlot(args[2])
			if err != nil {
				return err
			}

			booking, err := services.CreateBooking(app.Ctx, app.Database, app.Logger, services.BookingRequest{
				UserID: args[0],
				Date:   date,
				Slot:   slot,
			}, app.Now())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booking created\n\nID:   %s\nDate: %s\nSlot: %s\n\n", booking.ID(), booking.Date(), booking.Slot())
			return nil
		},
	}
}

// CancelBookingCmd creates the cancelBooking command
func CancelBookingCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelBooking <id>",
		Short: "Cancel a booking, freeing any equipment it held",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.CancelBooking(app.Ctx, app.Database, app.Logger, args[0], app.Now()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Booking %s cancelled\n\n", args[0])
			return nil
		},
	}
}

// MissedBookingsCmd creates the missedBookings command
func MissedBookingsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "missedBookings",
		Short: "List past bookings that never received equipment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := app.Today()
			if err != nil {
				return err
			}

			missed, err := services.ListMissedBookings(app.Ctx, app.Database, app.Logger, today)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d missed booking(s):\n\n", len(missed))
			for _, b := range missed {
				fmt.Fprintf(out, "- %s %-10s %s (user %s)\n", b.Date(), b.Slot(), b.ID(), b.UserID())
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

// SetUserEmailCmd creates the setUserEmail command
func SetUserEmailCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setUserEmail <user> <email>",
		Short: "Record the email address booking outcomes are sent to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := services.SetUserEmail(app.Ctx, app.Database, app.Logger, args[0], args[1]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Email for %s set to %s\n\n", args[0], args[1])
			return nil
		},
	}
}
