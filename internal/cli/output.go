package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"colonyledger/pkg/domain"
)

// Exit codes returned by Execute.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitRejected   = 2 // precondition failure: nothing was changed
	ExitIntegrity  = 3
	ExitPersisting = 4
)

// ErrViolationsFound is returned by validate when stored records are inconsistent.
var ErrViolationsFound = errors.New("hierarchy violations found")

func exitCode(err error) int {
	if errors.Is(err, ErrViolationsFound) {
		return ExitIntegrity
	}
	kind, ok := domain.KindOf(err)
	if !ok {
		return ExitFailure
	}
	switch kind {
	case domain.KindIntegrityFault:
		return ExitIntegrity
	case domain.KindPersistenceFailure:
		return ExitPersisting
	default:
		return ExitRejected
	}
}

// emit prints value as JSON when --json is set, otherwise via text, and writes
// the --report file when requested.
func emit(opts *RootOptions, w io.Writer, value any, text func(io.Writer)) error {
	if opts.Report != "" {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(opts.Report, append(data, '\n'), 0o600); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	}
	text(w)
	return nil
}
