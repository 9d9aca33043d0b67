package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/oikos-digital/oikos/internal/building"
	"github.com/oikos-digital/oikos/internal/ledger"
	"github.com/oikos-digital/oikos/internal/shared"
)

// ReconcileCLI compares cached apartment balances against the ledger.
type ReconcileCLI struct {
	buildings *building.Service
	ledger    *ledger.Service
}

// NewReconcileCLI constructs a new helper instance.
func NewReconcileCLI(buildings *building.Service, ledgerSvc *ledger.Service) *ReconcileCLI {
	return &ReconcileCLI{buildings: buildings, ledger: ledgerSvc}
}

// ReconcileOptions configures a reconcile invocation.
type ReconcileOptions struct {
	BuildingID int64
	Fix        bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

type reconcileReport struct {
	BuildingID int64                     `json:"building_id"`
	Warnings   []shared.IntegrityWarning `json:"warnings,omitempty"`
	Drifted    []ledger.BalanceCheck     `json:"drifted,omitempty"`
	Fixed      int                       `json:"fixed,omitempty"`
}

// Run executes the reconcile command and returns the process exit code.
func (c *ReconcileCLI) Run(ctx context.Context, opts ReconcileOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c == nil || c.ledger == nil {
		fmt.Fprintln(opts.Stderr, "reconcile: not configured")
		return 1
	}

	ids := []int64{opts.BuildingID}
	if opts.BuildingID <= 0 {
		buildings, err := c.buildings.ListBuildings(ctx)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "reconcile: %v\n", err)
			return 1
		}
		ids = ids[:0]
		for _, b := range buildings {
			ids = append(ids, b.ID)
		}
	}

	var reports []reconcileReport
	var drifted int
	for _, id := range ids {
		warnings, checks, err := c.ledger.ReconcileReport(ctx, id)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "reconcile: building %d: %v\n", id, err)
			return 1
		}
		if millsWarning, err := c.buildings.AuditMills(ctx, id); err == nil && millsWarning != nil {
			warnings = append(warnings, *millsWarning)
		}
		report := reconcileReport{BuildingID: id, Warnings: warnings, Drifted: checks}
		if opts.Fix && len(checks) > 0 {
			n, err := c.ledger.ReconcileFix(ctx, id)
			if err != nil {
				fmt.Fprintf(opts.Stderr, "reconcile: fix building %d: %v\n", id, err)
				return 1
			}
			report.Fixed = n
		}
		drifted += len(checks)
		reports = append(reports, report)
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(reports); err != nil {
			fmt.Fprintf(opts.Stderr, "reconcile: %v\n", err)
			return 1
		}
	} else {
		renderReconcileHuman(opts.Stdout, reports)
	}
	if drifted > 0 && !opts.Fix {
		return 10
	}
	return 0
}

func renderReconcileHuman(out io.Writer, reports []reconcileReport) {
	for _, report := range reports {
		if len(report.Warnings) == 0 && len(report.Drifted) == 0 {
			fmt.Fprintf(out, "building %d: clean\n", report.BuildingID)
			continue
		}
		fmt.Fprintf(out, "building %d: %d warning(s), %d drifted balance(s)\n",
			report.BuildingID, len(report.Warnings), len(report.Drifted))
		for _, w := range report.Warnings {
			fmt.Fprintf(out, " - %s\n", w.String())
		}
		for _, check := range report.Drifted {
			fmt.Fprintf(out, " - apartment %s: cached %s, ledger %s\n",
				check.Number, check.Cached.StringFixed(2), check.Ledger.StringFixed(2))
		}
		if report.Fixed > 0 {
			fmt.Fprintf(out, " fixed %d balance(s)\n", report.Fixed)
		}
	}
}
