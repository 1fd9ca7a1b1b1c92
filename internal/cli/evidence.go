package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/ecoprog/internal/ports/primary"
	"github.com/example/ecoprog/internal/wire"
)

// EvidenceCmd returns the evidence ledger command.
func EvidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evidence",
		Aliases: []string{"ev"},
		Short:   "Submit and review evidence",
		Long: `Submit evidence for a stage requirement and review submissions. Every change
that moves evidence into or out of approved recomputes the school's progression
in the same transaction.`,
	}

	submitCmd := mutating(&cobra.Command{
		Use:   "submit",
		Short: "Submit evidence for the school's current round",
		RunE: func(cmd *cobra.Command, args []string) error {
			school, _ := cmd.Flags().GetString("school")
			stage, _ := cmd.Flags().GetString("stage")
			requirement, _ := cmd.Flags().GetString("requirement")
			title, _ := cmd.Flags().GetString("title")
			visibility, _ := cmd.Flags().GetString("visibility")
			file, _ := cmd.Flags().GetString("file")
			return wire.EvidenceAdapter().Submit(NewContext(), primary.SubmitEvidenceRequest{
				SchoolID:      school,
				Stage:         stage,
				RequirementID: requirement,
				Title:         title,
				Visibility:    visibility,
				FileRef:       file,
			})
		},
	})
	submitCmd.Flags().String("school", "", "School ID")
	submitCmd.Flags().StringP("stage", "s", "", "Stage (inspire, investigate, act)")
	submitCmd.Flags().StringP("requirement", "r", "", "Requirement the evidence satisfies")
	submitCmd.Flags().StringP("title", "t", "", "Title")
	submitCmd.Flags().String("visibility", "", "Visibility (private, school, public)")
	submitCmd.Flags().String("file", "", "File reference")
	_ = submitCmd.MarkFlagRequired("school")
	_ = submitCmd.MarkFlagRequired("stage")

	reviewCmd := mutating(&cobra.Command{
		Use:   "review [evidence-id]",
		Short: "Approve or reject a pending submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			approve, _ := cmd.Flags().GetBool("approve")
			reject, _ := cmd.Flags().GetBool("reject")
			notes, _ := cmd.Flags().GetString("notes")
			decision, err := reviewDecision(approve, reject)
			if err != nil {
				return err
			}
			return wire.EvidenceAdapter().Review(NewContext(), args[0], decision, notes)
		},
	})
	addDecisionFlags(reviewCmd)

	bulkCmd := mutating(&cobra.Command{
		Use:   "bulk-review [evidence-id...]",
		Short: "Apply one decision to many submissions atomically",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			approve, _ := cmd.Flags().GetBool("approve")
			reject, _ := cmd.Flags().GetBool("reject")
			notes, _ := cmd.Flags().GetString("notes")
			decision, err := reviewDecision(approve, reject)
			if err != nil {
				return err
			}
			return wire.EvidenceAdapter().BulkReview(NewContext(), args, decision, notes)
		},
	})
	addDecisionFlags(bulkCmd)

	editCmd := mutating(&cobra.Command{
		Use:   "edit [evidence-id]",
		Short: "Edit a submission directly (admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.EvidenceAdapter().Edit(NewContext(), primary.EditEvidenceRequest{
				EvidenceID:    args[0],
				Status:        stringFlagPtr(cmd, "status"),
				Visibility:    stringFlagPtr(cmd, "visibility"),
				RequirementID: stringFlagPtr(cmd, "requirement"),
				Title:         stringFlagPtr(cmd, "title"),
			})
		},
	})
	editCmd.Flags().String("status", "", "New status (pending, approved, rejected)")
	editCmd.Flags().String("visibility", "", "New visibility")
	editCmd.Flags().StringP("requirement", "r", "", "Link to requirement (empty unlinks)")
	editCmd.Flags().StringP("title", "t", "", "New title")

	deleteCmd := mutating(&cobra.Command{
		Use:   "delete [evidence-id]",
		Short: "Delete a pending submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.EvidenceAdapter().Delete(NewContext(), args[0])
		},
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			school, _ := cmd.Flags().GetString("school")
			stage, _ := cmd.Flags().GetString("stage")
			status, _ := cmd.Flags().GetString("status")
			round, _ := cmd.Flags().GetInt("round")
			limit, _ := cmd.Flags().GetInt("limit")
			return wire.EvidenceAdapter().List(NewContext(), primary.EvidenceFilters{
				SchoolID: school,
				Stage:    stage,
				Status:   status,
				Round:    round,
				Limit:    limit,
			})
		},
	}
	listCmd.Flags().String("school", "", "Filter by school")
	listCmd.Flags().StringP("stage", "s", "", "Filter by stage")
	listCmd.Flags().String("status", "", "Filter by status")
	listCmd.Flags().Int("round", 0, "Filter by round")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum rows")

	galleryCmd := &cobra.Command{
		Use:   "gallery",
		Short: "List approved public evidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, _ := cmd.Flags().GetString("stage")
			return wire.EvidenceAdapter().Gallery(NewContext(), stage)
		},
	}
	galleryCmd.Flags().StringP("stage", "s", "", "Only this stage")

	cmd.AddCommand(submitCmd, reviewCmd, bulkCmd, editCmd, deleteCmd, listCmd, galleryCmd)
	return cmd
}

func addDecisionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("approve", false, "Approve")
	cmd.Flags().Bool("reject", false, "Reject")
	cmd.Flags().String("notes", "", "Review notes")
}
