package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/boat-hire/pkg/core/model"
	"github.com/jakechorley/boat-hire/pkg/core/services"
)

// AddEquipmentCmd creates the addEquipment command
func AddEquipmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "addEquipment <boat|battery> <name>",
		Short: "Register a boat or battery",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseEquipmentKind(args[0])
			if err != nil {
				return err
			}

			equipment, err := services.AddEquipment(app.Ctx, app.Database, app.Logger, kind, args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Added %s %q\n\nID: %s\n\n", equipment.Kind(), equipment.Name(), equipment.ID())
			return nil
		},
	}
}

// CommentEquipmentCmd creates the commentEquipment command
func CommentEquipmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "commentEquipment <id> <text>",
		Short: "Add a maintenance note to a boat or battery",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			equipment, err := services.CommentOnEquipment(app.Ctx, app.Database, app.Logger, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ %s %q now has %d comment(s)\n\n", equipment.Kind(), equipment.Name(), len(equipment.Comments()))
			return nil
		},
	}
}

// ListEquipmentCmd creates the listEquipment command
func ListEquipmentCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listEquipment <boat|battery>",
		Short: "List boats or batteries with usage counts and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseEquipmentKind(args[0])
			if err != nil {
				return err
			}

			equipment, err := services.ListEquipment(app.Ctx, app.Database, app.Logger, kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d %s(s):\n\n", len(equipment), kind)
			for _, e := range equipment {
				fmt.Fprintf(out, "- %s (%s) - used %d time(s)\n", e.Name(), e.ID(), e.BookingCount())
				for _, c := range e.Comments() {
					fmt.Fprintf(out, "    • %s\n", c)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
