// Package scoring turns annotated events into per-company daily scores with
// exponential time decay.
//
// Each true feature on an event contributes weight * exp(-k * age), where
// k = ln 2 / half-life and age is whole days since the event. Events without
// a timestamp count as a year old. Computed in Go because modernc.org/sqlite
// lacks exp().
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/lazypower/prospector/internal/config"
	"github.com/lazypower/prospector/internal/logging"
	"github.com/lazypower/prospector/internal/store"
)

// UndatedAgeDays is the age assigned to events with no timestamp.
const UndatedAgeDays = 365

// DateLayout is the calendar date format of score rows.
const DateLayout = "2006-01-02"

// DecayRate returns k for a half-life in days. Half-lives under one day are
// treated as one day.
func DecayRate(halfLifeDays float64) float64 {
	return math.Ln2 / math.Max(halfLifeDays, 1)
}

// AgeDays returns whole days between ts and now, never negative.
func AgeDays(ts *time.Time, now time.Time) int {
	if ts == nil {
		return UndatedAgeDays
	}
	d := now.Sub(*ts)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Contribution is weight decayed over age days at rate k.
func Contribution(weight, k float64, age int) float64 {
	return weight * math.Exp(-k*float64(age))
}

// Today returns the UTC calendar date of now.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// Compute scores events against rules as of now. Companies with no
// qualifying feature are absent from the result. Reasons follow event order,
// then feature name. Results are ordered by company id.
func Compute(events []store.Event, rules *config.Rules, now time.Time) []store.DailyScore {
	k := DecayRate(rules.Decay.HalfLifeDays)
	date := Today(now)

	totals := make(map[int64]*store.DailyScore)
	for _, e := range events {
		age := AgeDays(e.Time, now)

		names := make([]string, 0, len(e.Features))
		for name, on := range e.Features {
			if on {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		for _, name := range names {
			w := rules.Weights[name]
			if w == 0 {
				continue
			}
			gain := Contribution(w, k, age)

			s := totals[e.CompanyID]
			if s == nil {
				s = &store.DailyScore{CompanyID: e.CompanyID, Date: date}
				totals[e.CompanyID] = s
			}
			s.Score += gain
			s.Reasons = append(s.Reasons, store.Reason{
				Feature: name,
				AgeDays: age,
				Gain:    math.Round(gain*100) / 100,
			})
		}
	}

	out := make([]store.DailyScore, 0, len(totals))
	for _, s := range totals {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out
}

// Run computes today's scores from every stored event and replaces the rows
// for today's date.
func Run(ctx context.Context, db *store.DB, rules *config.Rules, now time.Time, log *slog.Logger) ([]store.DailyScore, error) {
	log = logging.OrDefault(log)

	events, err := db.ListEvents()
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := Compute(events, rules, now)
	date := Today(now)
	if err := db.ReplaceDailyScores(date, scores); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	companies, err := db.ListCompanies()
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}
	log.Info("scoring complete",
		"date", date,
		"scored", len(scores),
		"unscored", len(companies)-len(scores),
	)
	return scores, nil
}
