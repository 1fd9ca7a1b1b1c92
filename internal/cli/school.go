package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/wire"
)

// SchoolCmd returns the school command.
func SchoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "school",
		Short: "Manage schools and award rounds",
	}

	createCmd := mutating(&cobra.Command{
		Use:   "create [name]",
		Short: "Register a school in round 1",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SchoolAdapter().Create(NewContext(), strings.Join(args, " "))
		},
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List schools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SchoolAdapter().List(NewContext())
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [school-id]",
		Short: "Show a school and its progression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.SchoolAdapter().Show(NewContext(), args[0])
		},
	}

	advanceCmd := mutating(&cobra.Command{
		Use:   "advance [school-id]",
		Short: "Move a school into its next round",
		Long: `Move a school into its next round (admins only). Refused until the current
round's award is complete unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return wire.SchoolAdapter().Advance(NewContext(), args[0], force)
		},
	})
	advanceCmd.Flags().BoolP("force", "f", false, "Advance even if the current award is incomplete")

	cmd.AddCommand(createCmd, listCmd, showCmd, advanceCmd)
	return cmd
}
