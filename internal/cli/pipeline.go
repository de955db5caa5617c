package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/prospector/internal/config"
	"github.com/lazypower/prospector/internal/drafting"
	"github.com/lazypower/prospector/internal/engine"
	"github.com/lazypower/prospector/internal/features"
	"github.com/lazypower/prospector/internal/ingest"
	"github.com/lazypower/prospector/internal/llm"
	"github.com/lazypower/prospector/internal/scoring"
	"github.com/lazypower/prospector/internal/store"
)

var (
	ingestCompanies string
	ingestBrowser   bool

	annotateAll bool

	scoreRules string
	scoreAll   bool

	retrieveTopN  int
	retrieveQuery string
	retrieveDate  string

	draftTopN         int
	draftVariants     int
	draftDate         string
	draftSkipRetrieve bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch RSS feeds and job boards and store them as events",
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

		res, err := a.ingest(cmd.Context(), db, ingestCompanies, ingestBrowser)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d new events (%d already stored) from %d sources, %d failed.\n",
			res.Inserted, res.Duplicates, res.Sources, res.Failed)
		return nil
	},
}

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Extract features from stored events",
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

		n, err := features.Annotate(cmd.Context(), db, nil, annotateAll, a.log)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Annotated %d events.\n", n)
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Extract features and compute today's account scores",
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

		scores, err := a.score(cmd.Context(), db, scoreRules, scoreAll)
		if err != nil {
			return err
		}
		printScores(cmd.OutOrStdout(), db, scores, 10)
		return nil
	},
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the evidence index from stored events",
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

		eng := a.engine(db)
		defer eng.Close()

		n, err := eng.RebuildIndex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d events.\n", n)
		return nil
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Gather evidence for the top scored companies",
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

		eng := a.engine(db)
		defer eng.Close()

		contexts, err := a.retrieve(cmd.Context(), eng, dateOrToday(retrieveDate), retrieveTopN, retrieveQuery)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Gathered context for %d companies.\n", len(contexts))
		return nil
	},
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Build the index, gather context and generate email drafts",
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

		date := dateOrToday(draftDate)
		if !draftSkipRetrieve {
			eng := a.engine(db)
			defer eng.Close()
			if _, err := eng.RebuildIndex(cmd.Context()); err != nil {
				return err
			}
			if _, err := a.retrieve(cmd.Context(), eng, date, draftTopN, ""); err != nil {
				return err
			}
		}

		drafts, err := a.draft(cmd.Context(), db, date, draftTopN, draftVariants)
		if err != nil {
			return err
		}
		printDrafts(cmd.OutOrStdout(), drafts, time.Now())
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCompanies, "companies", "config/companies.yaml", "Path to companies YAML")
	ingestCmd.Flags().BoolVar(&ingestBrowser, "browser", false, "Render job boards in headless Chrome")

	annotateCmd.Flags().BoolVar(&annotateAll, "all", false, "Re-annotate events that already have features")

	scoreCmd.Flags().StringVar(&scoreRules, "rules", "config/rules.yaml", "Path to scoring rules YAML (built-in defaults when missing)")
	scoreCmd.Flags().BoolVar(&scoreAll, "all", false, "Re-annotate events that already have features")

	retrieveCmd.Flags().IntVar(&retrieveTopN, "top-n", 0, "How many top companies to gather context for (default from config)")
	retrieveCmd.Flags().StringVar(&retrieveQuery, "query", "", "Query strategy: fixed or icp (default from config)")
	retrieveCmd.Flags().StringVar(&retrieveDate, "date", "", "Score date YYYY-MM-DD (default today)")

	draftCmd.Flags().IntVar(&draftTopN, "top-n", 0, "How many top companies to draft for (default from config)")
	draftCmd.Flags().IntVar(&draftVariants, "variants", 0, "How many variants per company (default from config)")
	draftCmd.Flags().StringVar(&draftDate, "date", "", "Score date YYYY-MM-DD (default today)")
	draftCmd.Flags().BoolVar(&draftSkipRetrieve, "skip-retrieve", false, "Draft from the stored context snapshot")
}

func (a *app) ingest(ctx context.Context, db *store.DB, companiesPath string, browser bool) (ingest.Result, error) {
	companies, err := config.LoadCompanies(companiesPath)
	if err != nil {
		return ingest.Result{}, err
	}
	cfg := a.cfg.Ingest
	if browser {
		cfg.Browser = true
	}
	return ingest.New(db, cfg, a.log).Run(ctx, companies)
}

// score annotates unannotated (or all) events and computes today's scores.
func (a *app) score(ctx context.Context, db *store.DB, rulesPath string, all bool) ([]store.DailyScore, error) {
	rules, err := loadRulesOrDefault(rulesPath)
	if err != nil {
		return nil, err
	}
	if _, err := features.Annotate(ctx, db, nil, all, a.log); err != nil {
		return nil, err
	}
	return scoring.Run(ctx, db, rules, time.Now(), a.log)
}

// loadRulesOrDefault reads path when it exists and otherwise uses the
// built-in rules.
func loadRulesOrDefault(path string) (*config.Rules, error) {
	if path != "" && fileExists(path) {
		return config.LoadRules(path)
	}
	return config.DefaultRules()
}

func (a *app) engine(db *store.DB) *engine.Engine {
	return engine.New(db, engine.NewEmbedderFactory(a.cfg.Embedding, a.cfg.LLM, a.log), a.log)
}

// retrieve gathers contexts and exports them to the contexts file. With no
// scored companies the previous export is left in place.
func (a *app) retrieve(ctx context.Context, eng *engine.Engine, date string, topN int, query string) (map[int64][]store.Evidence, error) {
	if topN <= 0 {
		topN = a.cfg.Retrieval.TopN
	}
	if query == "" {
		query = a.cfg.Retrieval.Query
	}
	strategy, err := engine.QueryStrategyFor(query)
	if err != nil {
		return nil, err
	}

	contexts, err := eng.GatherContext(ctx, date, topN, strategy)
	if err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		return contexts, nil
	}
	if err := engine.WriteContextsFile(a.cfg.ContextsPath(), contexts); err != nil {
		return nil, err
	}
	a.log.Debug("contexts exported", "path", a.cfg.ContextsPath())
	return contexts, nil
}

func (a *app) draft(ctx context.Context, db *store.DB, date string, topN, variants int) ([]store.Draft, error) {
	if topN <= 0 {
		topN = a.cfg.Retrieval.TopN
	}
	if variants <= 0 {
		variants = a.cfg.Drafting.Variants
	}

	client, err := llm.NewClient(ctx, a.cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}

	gen := &drafting.Generator{
		DB:        db,
		LLM:       client,
		Log:       a.log,
		ValueProp: a.cfg.Drafting.ValueProp,
		OutDir:    a.cfg.DraftsDir(),
	}
	return gen.Run(ctx, date, topN, variants)
}
