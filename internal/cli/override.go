package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/wire"
)

// OverrideCmd returns the override command.
func OverrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Mark requirements satisfied without evidence (admins only)",
	}

	toggleCmd := mutating(&cobra.Command{
		Use:   "toggle",
		Short: "Set the override if absent, otherwise remove it",
		RunE: func(cmd *cobra.Command, args []string) error {
			school, _ := cmd.Flags().GetString("school")
			requirement, _ := cmd.Flags().GetString("requirement")
			round, _ := cmd.Flags().GetInt("round")
			return wire.OverrideAdapter().Toggle(NewContext(), school, requirement, round)
		},
	})
	toggleCmd.Flags().String("school", "", "School ID")
	toggleCmd.Flags().StringP("requirement", "r", "", "Requirement ID")
	toggleCmd.Flags().Int("round", 0, "Round (default: the school's current round)")
	_ = toggleCmd.MarkFlagRequired("school")
	_ = toggleCmd.MarkFlagRequired("requirement")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a school's overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			school, _ := cmd.Flags().GetString("school")
			round, _ := cmd.Flags().GetInt("round")
			return wire.OverrideAdapter().List(NewContext(), school, round)
		},
	}
	listCmd.Flags().String("school", "", "School ID")
	listCmd.Flags().Int("round", 0, "Only this round")
	_ = listCmd.MarkFlagRequired("school")

	cmd.AddCommand(toggleCmd, listCmd)
	return cmd
}
