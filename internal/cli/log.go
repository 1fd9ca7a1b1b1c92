package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/wire"
)

// LogCmd returns the activity log command.
func LogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View the activity log",
		Long:  "View the audit trail of evidence, override, catalog and school changes (newest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			school, _ := cmd.Flags().GetString("school")
			entity, _ := cmd.Flags().GetString("entity")
			entityID, _ := cmd.Flags().GetString("id")
			actor, _ := cmd.Flags().GetString("actor")
			action, _ := cmd.Flags().GetString("action")
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				limit = 50
			}
			return wire.LogAdapter().List(NewContext(), primary.LogFilters{
				SchoolID:   school,
				EntityType: entity,
				EntityID:   entityID,
				ActorID:    actor,
				Action:     action,
				Limit:      limit,
			})
		},
	}
	cmd.Flags().String("school", "", "Filter by school")
	cmd.Flags().String("entity", "", "Filter by entity type (evidence, override, requirement, school)")
	cmd.Flags().String("id", "", "Filter by entity ID")
	cmd.Flags().String("actor", "", "Filter by actor")
	cmd.Flags().String("action", "", "Filter by action (create, update, delete)")
	cmd.Flags().IntP("limit", "n", 50, "Number of entries to show")

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			return wire.LogAdapter().Prune(NewContext(), days)
		},
	}
	pruneCmd.Flags().Int("days", 90, "Delete entries older than this many days")

	cmd.AddCommand(pruneCmd)
	return cmd
}
