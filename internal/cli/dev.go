package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/db"
	"github.com/example/ecoprog/internal/wire"
)

// DevCmd returns the dev command group for development utilities.
func DevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "dev",
		Short:  "Development utilities",
		Hidden: true,
	}

	cmd.AddCommand(devSeedCmd())
	return cmd
}

func devSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load fixture schools, requirements and evidence",
		Long: `Load a small catalog, three schools and a spread of evidence into an empty
database, then recompute every school so stored progression matches the fixtures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.SeedFixtures(wire.DB()); err != nil {
				return fmt.Errorf("failed to seed fixtures: %w", err)
			}
			fmt.Println("✓ Fixtures loaded")

			return wire.ProgressAdapter().RecomputeAll(NewContext())
		},
	}
}
