package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"colonyledger/pkg/domain"
)

// NewProjectsCommand creates the projects command.
func NewProjectsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with dependent record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summaries, err := opts.service.Projects(cmd.Context())
			if err != nil {
				return err
			}
			return emit(opts, cmd.OutOrStdout(), summaries, func(w io.Writer) {
				for _, s := range summaries {
					marker := " "
					if s.Active {
						marker = "*"
					}
					fmt.Fprintf(w, "%s %s\t%s\tspecies=%d individuals=%d\n", marker, s.Project.ID, s.Project.Name, s.Species, s.Individuals)
				}
			})
		},
	}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check stored records for hierarchy violations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			violations, err := opts.service.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if violations == nil {
				violations = []domain.Violation{}
			}
			if err := emit(opts, cmd.OutOrStdout(), violations, func(w io.Writer) {
				if len(violations) == 0 {
					fmt.Fprintln(w, "no violations")
					return
				}
				for _, v := range violations {
					fmt.Fprintln(w, v.String())
				}
			}); err != nil {
				return err
			}
			if len(violations) > 0 {
				return fmt.Errorf("%w: %d", ErrViolationsFound, len(violations))
			}
			return nil
		},
	}
}

// SeedFile is the JSON document accepted by the seed command.
type SeedFile struct {
	domain.Snapshot
	ActivePartition string `json:"active_partition"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Replace all stored records with the contents of a JSON file",
		Long: `Replace all stored records with the contents of a JSON file.

The file holds "projects", "species" and "individuals" arrays and an optional
"active_partition" project id. It is validated before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var seed SeedFile
			if err := json.Unmarshal(data, &seed); err != nil {
				return fmt.Errorf("decode seed file: %w", err)
			}
			if err := opts.service.Import(cmd.Context(), seed.Snapshot, seed.ActivePartition); err != nil {
				return err
			}
			summary := map[string]int{
				"projects":    len(seed.Projects),
				"species":     len(seed.Species),
				"individuals": len(seed.Individuals),
			}
			return emit(opts, cmd.OutOrStdout(), summary, func(w io.Writer) {
				fmt.Fprintf(w, "seeded %d projects, %d species, %d individuals\n", len(seed.Projects), len(seed.Species), len(seed.Individuals))
			})
		},
	}
}
