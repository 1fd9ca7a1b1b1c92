package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/wire"
)

// mutatesAnnotation marks commands that commit progression changes.
const mutatesAnnotation = "ecoprog/mutates"

func mutating(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[mutatesAnnotation] = "true"
	return cmd
}

func isMutating(cmd *cobra.Command) bool {
	return cmd.Annotations[mutatesAnnotation] == "true"
}

// RootCmd builds the ecoprog command tree.
func RootCmd(version string) *cobra.Command {
	var (
		configPath string
		asActor    string
		asAdmin    bool
	)

	root := &cobra.Command{
		Use:     "ecoprog",
		Short:   "Stage progression engine for school sustainability awards",
		Version: version,
		Long: `ecoprog tracks each school's progress through the inspire, investigate and act
stages of an award round. Approved evidence and admin overrides satisfy catalog
requirements; completing all three stages completes the round's award.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			wire.SetConfigPath(configPath)
			if err := wire.Init(); err != nil {
				return err
			}
			cfg := wire.Config()
			ConfigureActor(asActor, asAdmin, cfg.Actor.ID, cfg.Actor.Admin)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !isMutating(cmd) || !wire.Config().Outbox.Inline {
				return nil
			}
			// Inline delivery: subscribers hear about this command's commits
			// before the process exits.
			if _, err := wire.OutboxService().DispatchOnce(NewContext()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: signal dispatch failed: %v\n", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ./ecoprog.yaml or ~/.ecoprog/ecoprog.yaml)")
	root.PersistentFlags().StringVar(&asActor, "as", "", "Act as this user ID")
	root.PersistentFlags().BoolVar(&asAdmin, "admin", false, "Act with admin rights")

	root.AddCommand(SchoolCmd())
	root.AddCommand(RequirementCmd())
	root.AddCommand(EvidenceCmd())
	root.AddCommand(OverrideCmd())
	root.AddCommand(ProgressCmd())
	root.AddCommand(OutboxCmd())
	root.AddCommand(LogCmd())
	root.AddCommand(DevCmd())

	return root
}

// Execute runs the root command and releases resources afterwards.
func Execute(version string) error {
	defer wire.Shutdown(context.Background())
	return RootCmd(version).Execute()
}
