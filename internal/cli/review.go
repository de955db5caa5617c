package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/prospector/internal/delivery"
	"github.com/lazypower/prospector/internal/remote"
	"github.com/lazypower/prospector/internal/store"
)

var (
	draftsStatus  string
	draftsCompany int64
	draftsLimit   int

	approveStatus string
	approveServer string

	sendProvider     string
	sendOnlyApproved bool
	sendPause        time.Duration
	sendLimit        int
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		if draftsStatus != "" && !delivery.ValidStatus(draftsStatus) {
			return fmt.Errorf("unknown status %q", draftsStatus)
		}
		db, err := a.openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		drafts, err := db.ListDrafts(store.DraftFilter{Status: draftsStatus, CompanyID: draftsCompany, Limit: draftsLimit})
		if err != nil {
			return err
		}
		printDrafts(cmd.OutOrStdout(), drafts, time.Now())
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <draft-id>",
	Short: "Mark a draft as approved, rejected or queued",
	Long: "Mark a draft as approved, rejected or queued. With --server the change " +
		"goes through a running review server instead of the local database.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		if !delivery.ValidStatus(approveStatus) {
			return fmt.Errorf("unknown status %q", approveStatus)
		}

		var d *store.Draft
		if approveServer != "" {
			d, err = remote.NewClient(approveServer).SetStatus(cmd.Context(), args[0], approveStatus)
		} else {
			db, openErr := a.openDB()
			if openErr != nil {
				return openErr
			}
			defer db.Close()
			d, err = delivery.SetStatus(db, args[0], approveStatus)
		}

		var apiErr *remote.APIError
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("no draft with id %s", args[0])
		case errors.As(err, &apiErr):
			return fmt.Errorf("review server: %s", apiErr.Message)
		case err != nil:
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Draft %s is now %s.\n", d.ID, d.Status)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send approved drafts",
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

		sender, err := delivery.NewSender(sendProvider, a.cfg.SMTP, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		n, err := delivery.SendBatch(cmd.Context(), db, sender, delivery.BatchOptions{
			OnlyApproved: sendOnlyApproved,
			Pause:        sendPause,
			To:           a.cfg.SMTP.To,
			Limit:        sendLimit,
		}, a.log)
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d drafts via %s.\n", n, sender.Name())
		return err
	},
}

func init() {
	draftsCmd.Flags().StringVar(&draftsStatus, "status", "", "Filter by status (queued, approved, rejected, sent)")
	draftsCmd.Flags().Int64Var(&draftsCompany, "company", 0, "Filter by company id")
	draftsCmd.Flags().IntVarP(&draftsLimit, "limit", "n", 50, "Maximum number of drafts")

	approveCmd.Flags().StringVar(&approveStatus, "status", store.StatusApproved, "queued, approved or rejected")
	approveCmd.Flags().StringVar(&approveServer, "server", "", "Review server URL (default: local database)")

	sendCmd.Flags().StringVar(&sendProvider, "provider", "dryrun", "dryrun or smtp")
	sendCmd.Flags().BoolVar(&sendOnlyApproved, "only-approved", true, "Send only approved drafts (false sends queued drafts)")
	sendCmd.Flags().DurationVar(&sendPause, "pause", time.Second, "Pause between sends")
	sendCmd.Flags().IntVar(&sendLimit, "limit", 0, "Maximum drafts to send (0 = all)")
}

func printDrafts(w io.Writer, drafts []store.Draft, now time.Time) {
	if len(drafts) == 0 {
		fmt.Fprintln(w, "No drafts.")
		return
	}
	for _, d := range drafts {
		created := humanize.RelTime(time.UnixMilli(d.CreatedAt), now, "ago", "from now")
		fmt.Fprintf(w, "%s  [%s]  company %d  v%d  %s\n", d.ID, d.Status, d.CompanyID, d.Variant, created)
		fmt.Fprintf(w, "   %s\n", d.Subject)
		if len(d.Sources) > 0 {
			fmt.Fprintf(w, "   sources: %s\n", strings.Join(d.Sources, ", "))
		}
	}
}

func printScores(w io.Writer, db *store.DB, scores []store.DailyScore, limit int) {
	if len(scores) == 0 {
		fmt.Fprintln(w, "No companies scored.")
		return
	}
	ranked := append([]store.DailyScore(nil), scores...)
	sortScores(ranked)
	fmt.Fprintf(w, "Scored %s companies.\n", humanize.Comma(int64(len(ranked))))
	for i, s := range ranked {
		if i == limit {
			break
		}
		name := fmt.Sprintf("company %d", s.CompanyID)
		if c, err := db.GetCompany(s.CompanyID); err == nil && c != nil {
			name = c.Name
		}
		fmt.Fprintf(w, "%2d. %-24s %6.2f\n", i+1, name, s.Score)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
