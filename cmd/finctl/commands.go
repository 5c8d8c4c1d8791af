package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"buildledger/internal/app"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/pkg/moneyfmt"
	"buildledger/internal/repository"
)

var (
	flagAll     bool
	flagRepair  bool
	flagProject int64
)

var recalcCmd = &cobra.Command{
	Use:   "recalc [project-id...]",
	Short: "Recompute phase actuals and project finances from source records",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		ids, err := projectIDs(cmd, a, args)
		if err != nil {
			return err
		}
		failed := 0
		for _, id := range ids {
			phases, err := repository.NewPhaseRepository(a.DB).ListByProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			ev := recalc.Event{ProjectID: id, Reason: "manual_recalc"}
			for _, p := range phases {
				ev.PhaseIDs = append(ev.PhaseIDs, p.ID)
			}
			warnings := a.Cascade.Trigger(cmd.Context(), ev)
			if len(warnings) > 0 {
				failed++
				fmt.Fprintf(os.Stderr, "  project %d: %s\n", id, strings.Join(warnings, "; "))
				continue
			}
			fmt.Printf("  project %d: %d phases recalculated\n", id, len(phases))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d projects had warnings", failed, len(ids))
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare committed counters with active contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if flagProject > 0 {
			res, err := a.Commitments.Reconcile(cmd.Context(), flagProject, flagRepair)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(res)
			}
			fmt.Printf("  project %d: %d counters checked, %d drifts\n", res.ProjectID, res.Checked, len(res.Drifts))
			return nil
		}

		results, err := a.Commitments.ReconcileAll(cmd.Context(), flagRepair)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(results)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "  PROJECT\tCHECKED\tDRIFTS\tREPAIRED")
		for _, r := range results {
			repaired := 0
			for _, d := range r.Drifts {
				if d.Repaired {
					repaired++
				}
			}
			fmt.Fprintf(w, "  %d\t%d\t%d\t%d\n", r.ProjectID, r.Checked, len(r.Drifts), repaired)
		}
		return w.Flush()
	},
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect or drain the recalculation outbox",
}

var outboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count pending recalculation tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		n, err := a.Worker.Pending(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("  %d pending (mode %s)\n", n, a.Cascade.Mode())
		return nil
	},
}

var outboxDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Process due tasks until none are left",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		var total recalc.DrainStats
		for {
			stats, err := a.Worker.DrainOnce(cmd.Context())
			if err != nil {
				return err
			}
			total.Processed += stats.Processed
			total.Succeeded += stats.Succeeded
			total.Failed += stats.Failed
			total.GaveUp += stats.GaveUp
			// failed tasks are rescheduled into the future, so an empty batch
			// or one with no successes ends the run
			if stats.Processed == 0 || stats.Succeeded == 0 {
				break
			}
		}
		if flagJSON {
			return printJSON(total)
		}
		fmt.Printf("  processed %d, succeeded %d, failed %d, gave up %d\n",
			total.Processed, total.Succeeded, total.Failed, total.GaveUp)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary <project-id>",
	Short: "Print a project's financial summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		a, _, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		s, err := a.Ledger.Summary(cmd.Context(), id)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(s)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', tabwriter.AlignRight)
		rows := []struct {
			label string
			value string
		}{
			{"Budget", moneyfmt.Format(s.BudgetTotal)},
			{"Allocated to phases", moneyfmt.Format(s.AllocatedToPhases)},
			{"Invested", moneyfmt.Format(s.Finances.TotalInvested)},
			{"Used", moneyfmt.Format(s.Finances.TotalUsed)},
			{"Committed", moneyfmt.Format(s.Finances.CommittedTotal)},
			{"Capital balance", moneyfmt.Format(s.Finances.CapitalBalance)},
			{"Available", moneyfmt.Format(s.AvailableCapital)},
		}
		for _, r := range rows {
			fmt.Fprintf(w, "  %s\t%s\t\n", r.label, r.value)
		}
		return w.Flush()
	},
}

func init() {
	recalcCmd.Flags().BoolVar(&flagAll, "all", false, "Recalculate every project")
	reconcileCmd.Flags().Int64Var(&flagProject, "project", 0, "Only reconcile this project")
	reconcileCmd.Flags().BoolVar(&flagRepair, "repair", false, "Overwrite drifted counters with recomputed values")
	outboxCmd.AddCommand(outboxStatusCmd, outboxDrainCmd)
}

func projectIDs(cmd *cobra.Command, a *app.App, args []string) ([]int64, error) {
	if flagAll {
		return repository.NewProjectRepository(a.DB).ListIDs(cmd.Context())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("pass project ids or --all")
	}
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid project id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
