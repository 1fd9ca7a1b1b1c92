package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// stringFlagPtr returns the flag value only when it was set explicitly,
// so an empty string can mean "clear" rather than "unchanged".
func stringFlagPtr(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func intFlagPtr(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt(name)
	return &v
}

// reviewDecision maps the --approve/--reject pair to a review decision.
func reviewDecision(approve, reject bool) (string, error) {
	switch {
	case approve && reject:
		return "", fmt.Errorf("--approve and --reject are mutually exclusive")
	case approve:
		return "approved", nil
	case reject:
		return "rejected", nil
	default:
		return "", fmt.Errorf("one of --approve or --reject is required")
	}
}
