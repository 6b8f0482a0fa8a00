package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/validators"
)

// NewValidatorsCommand creates the validators command.
func NewValidatorsCommand(rootOpts *RootOptions) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "validators",
		Short: "List the validators a rule string can name",
		Long: `List the core and built-in validator names in sorted order.

Examples:
  formtree validators
  formtree validators --prefix min
  formtree validators --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := []string{}
			for _, name := range validators.Default().Names() {
				if strings.HasPrefix(name, prefix) {
					names = append(names, name)
				}
			}

			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if formatter.JSON() {
				return formatter.Success(map[string]any{"validators": names})
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "only list names with this prefix")

	return cmd
}
