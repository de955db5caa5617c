package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/prospector/internal/report"
	"github.com/lazypower/prospector/internal/store"
)

var (
	reportDate string
	reportOut  string

	runCompanies string
	runRules     string
	runTopN      int
	runVariants  int
	runBrowser   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write report.csv and REPORT.md",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		db, err := a.openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return a.report(cmd.OutOrStdout(), db, dateOrToday(reportDate), reportOut)
	},
}

var contextsCmd = &cobra.Command{
	Use:   "contexts",
	Short: "Show the stored evidence for each company",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		db, err := a.openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		contexts, err := db.LoadContexts()
		if err != nil {
			return err
		}
		printContexts(cmd.OutOrStdout(), db, contexts)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run ingest, score, index, retrieve, draft and report in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		db, err := a.openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		date := dateOrToday("")

		res, err := a.ingest(ctx, db, runCompanies, runBrowser)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		fmt.Fprintf(out, "ingest: %d new events, %d failed sources\n", res.Inserted, res.Failed)

		scores, err := a.score(ctx, db, runRules, false)
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
		fmt.Fprintf(out, "score: %d companies\n", len(scores))

		eng := a.engine(db)
		defer eng.Close()

		n, err := eng.RebuildIndex(ctx)
		if err != nil {
			return fmt.Errorf("index: %w", err)
		}
		fmt.Fprintf(out, "index: %d events\n", n)

		contexts, err := a.retrieve(ctx, eng, date, runTopN, "")
		if err != nil {
			return fmt.Errorf("retrieve: %w", err)
		}
		fmt.Fprintf(out, "retrieve: %d companies\n", len(contexts))

		drafts, err := a.draft(ctx, db, date, runTopN, runVariants)
		if err != nil {
			return fmt.Errorf("draft: %w", err)
		}
		fmt.Fprintf(out, "draft: %d drafts queued for review\n", len(drafts))

		return a.report(out, db, date, "")
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Score date YYYY-MM-DD (default today)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Output directory (default data dir)")

	runCmd.Flags().StringVar(&runCompanies, "companies", "config/companies.yaml", "Path to companies YAML")
	runCmd.Flags().StringVar(&runRules, "rules", "config/rules.yaml", "Path to scoring rules YAML")
	runCmd.Flags().IntVar(&runTopN, "top-n", 0, "How many top companies to draft for (default from config)")
	runCmd.Flags().IntVar(&runVariants, "variants", 0, "How many variants per company (default from config)")
	runCmd.Flags().BoolVar(&runBrowser, "browser", false, "Render job boards in headless Chrome")
}

func (a *app) report(w io.Writer, db *store.DB, date, dir string) error {
	if dir == "" {
		dir = a.cfg.ResolvedDataDir()
	}
	paths, err := report.Write(db, dir, date, time.Now())
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(w, "wrote %s\n", p)
	}
	return nil
}

func printContexts(w io.Writer, db *store.DB, contexts map[int64][]store.Evidence) {
	if len(contexts) == 0 {
		fmt.Fprintln(w, "No contexts. Run `prospector retrieve` first.")
		return
	}
	ids := make([]int64, 0, len(contexts))
	for id := range contexts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		name := fmt.Sprintf("company %d", id)
		if c, err := db.GetCompany(id); err == nil && c != nil {
			name = fmt.Sprintf("%s (%s)", c.Name, c.Domain)
		}
		fmt.Fprintf(w, "## %s\n", name)
		if len(contexts[id]) == 0 {
			fmt.Fprintln(w, "   (no evidence)")
		}
		for _, e := range contexts[id] {
			fmt.Fprintf(w, "   [%.3f] %s\n         %s\n", e.Similarity, e.Title, e.URL)
		}
		fmt.Fprintln(w)
	}
}

func sortScores(scores []store.DailyScore) {
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
}
