package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oikos-digital/oikos/internal/schedule"
	"github.com/oikos-digital/oikos/internal/shared"
)

// ChargesCLI drives manual monthly charge runs from the command line.
type ChargesCLI struct {
	scheduler *schedule.Service
}

// NewChargesCLI constructs a new helper instance.
func NewChargesCLI(scheduler *schedule.Service) *ChargesCLI {
	return &ChargesCLI{scheduler: scheduler}
}

// ChargesOptions configures a create_monthly_charges invocation.
type ChargesOptions struct {
	Month        string
	BuildingID   int64
	Retroactive  bool
	FutureMonths int
	DryRun       bool
	JSONOutput   bool
	Stdout       io.Writer
	Stderr       io.Writer
}

// Run executes the charges command and returns the process exit code.
func (c *ChargesCLI) Run(ctx context.Context, opts ChargesOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c == nil || c.scheduler == nil {
		fmt.Fprintln(opts.Stderr, "create_monthly_charges: scheduler not configured")
		return 1
	}
	if opts.Retroactive && opts.FutureMonths > 0 {
		fmt.Fprintln(opts.Stderr, "create_monthly_charges: --retroactive and --future-months are mutually exclusive")
		return 1
	}
	if (opts.Retroactive || opts.FutureMonths > 0) && opts.BuildingID <= 0 {
		fmt.Fprintln(opts.Stderr, "create_monthly_charges: --building is required with --retroactive or --future-months")
		return 1
	}

	period := shared.CurrentMonth()
	if strings.TrimSpace(opts.Month) != "" {
		parsed, err := shared.ParseMonth(strings.TrimSpace(opts.Month))
		if err != nil {
			fmt.Fprintf(opts.Stderr, "create_monthly_charges: invalid --month %q (expected YYYY-MM)\n", opts.Month)
			return 1
		}
		period = parsed
	}

	var summary schedule.RunSummary
	var err error
	switch {
	case opts.Retroactive:
		summary, err = c.scheduler.Retroactive(ctx, opts.BuildingID, period, opts.DryRun)
	case opts.FutureMonths > 0:
		summary, err = c.scheduler.Future(ctx, opts.BuildingID, period, opts.FutureMonths, opts.DryRun)
	case opts.BuildingID > 0:
		var report schedule.MonthReport
		report, err = c.scheduler.CreateMonthlyCharges(ctx, opts.BuildingID, period, opts.DryRun)
		summary = schedule.RunSummary{Reports: []schedule.MonthReport{report}, Created: report.Created, Skipped: report.Skipped}
		if report.Failed {
			summary.Failed = 1
		}
	default:
		summary, err = c.scheduler.RunAll(ctx, period, opts.DryRun)
	}
	if err != nil {
		fmt.Fprintf(opts.Stderr, "create_monthly_charges: %v\n", err)
		return 1
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			fmt.Fprintf(opts.Stderr, "create_monthly_charges: %v\n", err)
			return 1
		}
	} else {
		renderChargesHuman(opts.Stdout, period, opts.DryRun, summary)
	}
	if summary.Failed > 0 {
		return 10
	}
	return 0
}

func renderChargesHuman(out io.Writer, period shared.Month, dryRun bool, summary schedule.RunSummary) {
	label := "Monthly charges"
	if dryRun {
		label = "Monthly charges (dry run)"
	}
	fmt.Fprintf(out, "%s for %s: %d created, %d skipped, %d failed\n",
		label, period.Key(), summary.Created, summary.Skipped, summary.Failed)
	for _, report := range summary.Reports {
		switch {
		case report.Failed:
			fmt.Fprintf(out, " - building %d %s: FAILED: %s\n", report.BuildingID, report.PeriodKey, report.Error)
		case report.Created > 0:
			fmt.Fprintf(out, " - building %d %s: %d charge(s)", report.BuildingID, report.PeriodKey, report.Created)
			for kind, amount := range report.Amounts {
				fmt.Fprintf(out, " %s=%s", kind, amount.StringFixed(2))
			}
			fmt.Fprintln(out)
		default:
			fmt.Fprintf(out, " - building %d %s: skipped\n", report.BuildingID, report.PeriodKey)
		}
	}
}
