package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"colonyledger/internal/core"
)

// DeleteOptions holds flags for delete run.
type DeleteOptions struct {
	*RootOptions
	Purge      bool
	TransferTo string
	DryRun     bool
}

// NewDeleteCommand creates the delete command group.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Plan or run project deletion",
	}
	cmd.AddCommand(newDeletePlanCommand(rootOpts), newDeleteRunCommand(rootOpts))
	return cmd
}

func newDeletePlanCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <project-id>",
		Short: "Show what deleting a project would affect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := opts.service.PlanDeletion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return emit(opts, cmd.OutOrStdout(), plan, func(w io.Writer) {
				fmt.Fprintf(w, "project %s has %d species and %d individuals\n", plan.ProjectID, plan.DependentSpeciesCount, plan.DependentIndividualCount)
				if plan.IsLastProject {
					fmt.Fprintln(w, "this is the last project and cannot be deleted")
					return
				}
				fmt.Fprintf(w, "suggested transfer target: %s\n", plan.SuggestedTarget)
			})
		},
	}
}

func newDeleteRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "run <project-id>",
		Short: "Delete a project, purging or transferring its records",
		Long: `Delete a project.

--purge discards every species and individual in the project.
--transfer-to moves them to another project without merging duplicates.
The last remaining project can never be deleted. If the deleted project was
active, the transfer target becomes active, or with --purge the first
remaining project.

Example:
  colonyledger delete run p-old --transfer-to p-main`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := opts.mode()
			if err != nil {
				return err
			}
			res, err := opts.service.DeleteProject(cmd.Context(), args[0], mode, callOpts(opts.DryRun)...)
			if err != nil {
				return err
			}
			return emit(opts.RootOptions, cmd.OutOrStdout(), res, func(w io.Writer) {
				prefix := dryRunPrefix(opts.DryRun)
				if mode.Kind == core.DeletionPurge {
					fmt.Fprintf(w, "%sdeleted %s with %d species and %d individuals\n", prefix, args[0], len(res.RemovedSpeciesIDs), len(res.RemovedIndividualIDs))
				} else {
					fmt.Fprintf(w, "%sdeleted %s, moved %d species and %d individuals to %s\n", prefix, args[0], res.ReassignedSpecies, res.ReassignedIndividuals, mode.TargetProjectID)
				}
				if res.ActiveChanged {
					fmt.Fprintf(w, "%sactive project is now %s\n", prefix, res.NewActivePartitionID)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Purge, "purge", false, "delete the project's records")
	cmd.Flags().StringVar(&opts.TransferTo, "transfer-to", "", "move the project's records to this project")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute the result without writing")
	cmd.MarkFlagsMutuallyExclusive("purge", "transfer-to")
	return cmd
}

func (o *DeleteOptions) mode() (core.DeletionMode, error) {
	switch {
	case o.Purge:
		return core.Purge(), nil
	case o.TransferTo != "":
		return core.TransferTo(o.TransferTo), nil
	default:
		return core.DeletionMode{}, errors.New("one of --purge or --transfer-to is required")
	}
}
