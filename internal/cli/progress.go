package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/wire"
)

// ProgressCmd returns the progression command.
func ProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Inspect and recompute school progression",
	}

	showCmd := &cobra.Command{
		Use:   "show [school-id]",
		Short: "Show stored progression with a live stage breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ProgressAdapter().Show(NewContext(), args[0])
		},
	}

	recomputeCmd := mutating(&cobra.Command{
		Use:   "recompute [school-id]",
		Short: "Re-derive progression from the ledger",
		Long: `Re-derive a school's progression from evidence, overrides and the catalog.
Recompute is idempotent: running it twice changes nothing the second time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			switch {
			case all && len(args) > 0:
				return fmt.Errorf("--all cannot be combined with a school ID")
			case all:
				return wire.ProgressAdapter().RecomputeAll(NewContext())
			case len(args) == 1:
				return wire.ProgressAdapter().Recompute(NewContext(), args[0])
			default:
				return fmt.Errorf("a school ID or --all is required")
			}
		},
	})
	recomputeCmd.Flags().Bool("all", false, "Recompute every school")

	roundCmd := &cobra.Command{
		Use:   "round [school-id] [round]",
		Short: "Preview progression for a round without saving it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			round, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid round %q: %w", args[1], err)
			}
			return wire.ProgressAdapter().Preview(NewContext(), args[0], round)
		},
	}

	rebuildCmd := mutating(&cobra.Command{
		Use:   "rebuild [school-id]",
		Short: "Re-derive award history for rounds 1..current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ProgressAdapter().Rebuild(NewContext(), args[0])
		},
	})

	cmd.AddCommand(showCmd, recomputeCmd, roundCmd, rebuildCmd)
	return cmd
}
