package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"colonyledger/internal/core"
)

// TransferOptions holds flags shared by the transfer subcommands.
type TransferOptions struct {
	*RootOptions
	From   string
	To     string
	IDs    []string
	DryRun bool
}

// NewTransferCommand creates the transfer command group.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move records between projects",
	}
	cmd.AddCommand(newGroupTransferCommand(rootOpts), newSelectiveTransferCommand(rootOpts))
	return cmd
}

func addTransferFlags(cmd *cobra.Command, opts *TransferOptions, idsFlag, idsUsage string) {
	cmd.Flags().StringVar(&opts.From, "from", "", "source project id (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "target project id (required)")
	cmd.Flags().StringSliceVar(&opts.IDs, idsFlag, nil, idsUsage)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute the result without writing")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func newGroupTransferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransferOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Move whole species, with their individuals, verbatim",
		Long: `Move whole species, with their individuals, to another project.

No merging takes place: if the target already has a species with the same
scientific name, both exist afterwards. Species ids that are not in the source
project are skipped.

Example:
  colonyledger transfer group --from p-a --to p-b --species s-1,s-2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := core.GroupTransferRequest{SourceProjectID: opts.From, TargetProjectID: opts.To, SpeciesIDs: opts.IDs}
			res, err := opts.service.GroupTransfer(cmd.Context(), req, callOpts(opts.DryRun)...)
			if err != nil {
				return err
			}
			return emit(opts.RootOptions, cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%smoved %d species and %d individuals from %s to %s\n",
					dryRunPrefix(opts.DryRun), res.SpeciesMoved, res.IndividualsMoved, opts.From, opts.To)
				printSkipped(w, res.Skipped)
			})
		},
	}
	addTransferFlags(cmd, opts, "species", "species ids to move")
	return cmd
}

func newSelectiveTransferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransferOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Move chosen individuals, merging species by scientific name",
		Long: `Move chosen individuals to another project.

Each individual joins the target species with exactly the same scientific
name, or a copy of its source species when the target has none. Source species
stay in place even when they end up empty.

Example:
  colonyledger transfer select --from p-a --to p-b --individuals i-1,i-2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := core.SelectiveTransferRequest{SourceProjectID: opts.From, TargetProjectID: opts.To, IndividualIDs: opts.IDs}
			res, err := opts.service.SelectiveTransfer(cmd.Context(), req, callOpts(opts.DryRun)...)
			if err != nil {
				return err
			}
			return emit(opts.RootOptions, cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%smoved %d individuals from %s to %s\n", dryRunPrefix(opts.DryRun), res.IndividualsMoved, opts.From, opts.To)
				for _, m := range res.Mappings {
					how := "reused"
					if m.Cloned {
						how = "cloned"
					}
					fmt.Fprintf(w, "  %s -> %s (%s, %d individuals)\n", m.SourceSpeciesID, m.TargetSpeciesID, how, len(m.IndividualIDs))
				}
				printSkipped(w, res.Skipped)
			})
		},
	}
	addTransferFlags(cmd, opts, "individuals", "individual ids to move")
	return cmd
}

func callOpts(dryRun bool) []core.CallOption {
	if dryRun {
		return []core.CallOption{core.DryRun()}
	}
	return nil
}

func dryRunPrefix(dryRun bool) string {
	if dryRun {
		return "[dry-run] "
	}
	return ""
}

func printSkipped(w io.Writer, skipped []string) {
	for _, id := range skipped {
		fmt.Fprintf(w, "  skipped %s\n", id)
	}
}
