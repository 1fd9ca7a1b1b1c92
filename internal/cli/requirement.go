package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/wire"
)

// RequirementCmd returns the requirement catalog command.
func RequirementCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requirement",
		Aliases: []string{"req"},
		Short:   "Manage the requirement catalog (admins only)",
		Long: `Manage the per-stage requirement catalog. Catalog changes recompute every
school so completion flags follow the new catalog.`,
	}

	addCmd := mutating(&cobra.Command{
		Use:   "add",
		Short: "Add a requirement to a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, _ := cmd.Flags().GetString("stage")
			title, _ := cmd.Flags().GetString("title")
			resources, _ := cmd.Flags().GetStringSlice("resource")
			return wire.RequirementAdapter().Add(NewContext(), primary.CreateRequirementRequest{
				Stage:        stage,
				Title:        title,
				OrderIndex:   intFlagPtr(cmd, "order"),
				ResourceRefs: resources,
			})
		},
	})
	addCmd.Flags().StringP("stage", "s", "", "Stage (inspire, investigate, act)")
	addCmd.Flags().StringP("title", "t", "", "Requirement title")
	addCmd.Flags().Int("order", 0, "Position within the stage (default: append)")
	addCmd.Flags().StringSlice("resource", nil, "Resource reference (repeatable)")
	_ = addCmd.MarkFlagRequired("stage")
	_ = addCmd.MarkFlagRequired("title")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List requirements in catalog order",
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, _ := cmd.Flags().GetString("stage")
			return wire.RequirementAdapter().List(NewContext(), stage)
		},
	}
	listCmd.Flags().StringP("stage", "s", "", "Only this stage")

	showCmd := &cobra.Command{
		Use:   "show [requirement-id]",
		Short: "Show a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequirementAdapter().Show(NewContext(), args[0])
		},
	}

	updateCmd := mutating(&cobra.Command{
		Use:   "update [requirement-id]",
		Short: "Update a requirement",
		Long: `Update a requirement's title, order or resources. The stage can only change
while no evidence or override references the requirement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resources, _ := cmd.Flags().GetStringSlice("resource")
			return wire.RequirementAdapter().Update(NewContext(), primary.UpdateRequirementRequest{
				RequirementID: args[0],
				Stage:         stringFlagPtr(cmd, "stage"),
				Title:         stringFlagPtr(cmd, "title"),
				OrderIndex:    intFlagPtr(cmd, "order"),
				ResourceRefs:  resources,
				SetResources:  cmd.Flags().Changed("resource"),
			})
		},
	})
	updateCmd.Flags().StringP("stage", "s", "", "New stage")
	updateCmd.Flags().StringP("title", "t", "", "New title")
	updateCmd.Flags().Int("order", 0, "New position within the stage")
	updateCmd.Flags().StringSlice("resource", nil, "Replace resource references (repeatable; empty clears)")

	deleteCmd := mutating(&cobra.Command{
		Use:   "delete [requirement-id]",
		Short: "Delete an unreferenced requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.RequirementAdapter().Delete(NewContext(), args[0])
		},
	})

	cmd.AddCommand(addCmd, listCmd, showCmd, updateCmd, deleteCmd)
	return cmd
}
