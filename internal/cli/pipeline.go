package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/mark3labs/contractc/internal/compiler"
	"github.com/mark3labs/contractc/internal/loci"
	"github.com/mark3labs/contractc/internal/reader"
	"github.com/mark3labs/contractc/internal/verify"
)

// compileInput reads and verifies one contract. Reader failures become
// usage errors; a contract with diagnostics is still returned.
func compileInput(ctx context.Context, input string, logger *log.Logger) (*compiler.Result, error) {
	logger.Printf("reading %s", input)
	unit, err := reader.Load(ctx, input)
	if err != nil {
		// Map structured reader errors into friendly messages
		var re *reader.ReadError
		if errors.As(err, &re) {
			msg := fmt.Sprintf("contract: %s", re.Message)
			if re.Location != "" && re.Line > 0 {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, loci.Location{Source: re.Location, Line: re.Line, Column: re.Column})
			} else if re.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, re.Location)
			}
			return nil, newUsageError(msg)
		}
		return nil, err
	}
	logger.Printf("read %d types and %d endpoints from %s", unit.Types.Len(), len(unit.Contract.Endpoints), input)

	res, err := compiler.Compile(ctx, unit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	logger.Printf("verified %s: %d problem(s)", input, len(res.Diagnostics))
	return res, nil
}

// writeDiagnosticsText prints one line per diagnostic, followed by the
// related locations it cites.
func writeDiagnosticsText(w io.Writer, diags []verify.Diagnostic) {
	for _, d := range diags {
		loc := loci.Location{Source: d.Location, Line: d.Line, Column: d.Column}
		fmt.Fprintf(w, "%s: %s [%s]\n", loc, d.Message, d.Code)
		for _, r := range d.Related {
			fmt.Fprintf(w, "  related: %s\n", r)
		}
	}
}

func invalidContract(problems, contracts int) error {
	return fmt.Errorf("%w: %d problem(s) in %d contract(s)", ErrInvalidContract, problems, contracts)
}
