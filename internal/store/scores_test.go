package store

import (
	"testing"
)

func TestReplaceDailyScores(t *testing.T) {
	db := testDB(t)
	a := seedCompany(t, db, "a.com")
	b := seedCompany(t, db, "b.com")

	scores := []DailyScore{
		{CompanyID: a, Score: 5.0, Reasons: []Reason{{Feature: "funding_recent", AgeDays: 7, Gain: 5.0}}},
		{CompanyID: b, Score: 9.5},
	}
	if err := db.ReplaceDailyScores("2026-01-10", scores); err != nil {
		t.Fatalf("ReplaceDailyScores: %v", err)
	}

	got, err := db.GetDailyScore(a, "2026-01-10")
	if err != nil {
		t.Fatalf("GetDailyScore: %v", err)
	}
	if got == nil {
		t.Fatal("expected score row")
	}
	if got.Score != 5.0 || len(got.Reasons) != 1 || got.Reasons[0].Feature != "funding_recent" {
		t.Errorf("got %+v", got)
	}

	empty, _ := db.GetDailyScore(b, "2026-01-10")
	if empty.Reasons == nil || len(empty.Reasons) != 0 {
		t.Errorf("nil reasons should round-trip as empty list, got %#v", empty.Reasons)
	}
}

func TestReplaceDailyScoresDropsStaleRows(t *testing.T) {
	db := testDB(t)
	a := seedCompany(t, db, "a.com")
	b := seedCompany(t, db, "b.com")

	db.ReplaceDailyScores("2026-01-10", []DailyScore{{CompanyID: a, Score: 1}, {CompanyID: b, Score: 2}})
	db.ReplaceDailyScores("2026-01-11", []DailyScore{{CompanyID: a, Score: 3}})

	// Rerun for 01-10 without company b
	if err := db.ReplaceDailyScores("2026-01-10", []DailyScore{{CompanyID: a, Score: 4}}); err != nil {
		t.Fatalf("ReplaceDailyScores: %v", err)
	}

	day, _ := db.ListDailyScores("2026-01-10")
	if len(day) != 1 || day[0].CompanyID != a || day[0].Score != 4 {
		t.Errorf("2026-01-10 = %+v, want only company a with 4", day)
	}

	other, _ := db.ListDailyScores("2026-01-11")
	if len(other) != 1 {
		t.Errorf("other dates must be untouched, got %+v", other)
	}
}

func TestTopScoresOrdering(t *testing.T) {
	db := testDB(t)
	a := seedCompany(t, db, "a.com")
	b := seedCompany(t, db, "b.com")
	c := seedCompany(t, db, "c.com")
	d := seedCompany(t, db, "d.com")

	db.ReplaceDailyScores("2026-01-10", []DailyScore{
		{CompanyID: a, Score: 2},
		{CompanyID: b, Score: 7},
		{CompanyID: c, Score: 2},
		{CompanyID: d, Score: 1},
	})

	top, err := db.TopScores("2026-01-10", 3)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	want := []int64{b, a, c}
	if len(top) != len(want) {
		t.Fatalf("len = %d, want %d", len(top), len(want))
	}
	for i, s := range top {
		if s.CompanyID != want[i] {
			t.Errorf("top[%d] = company %d, want %d", i, s.CompanyID, want[i])
		}
	}

	all, _ := db.TopScores("2026-01-10", 0)
	if len(all) != 4 {
		t.Errorf("n=0 should return all rows, got %d", len(all))
	}

	none, _ := db.TopScores("1999-01-01", 5)
	if len(none) != 0 {
		t.Errorf("unknown date should be empty, got %d", len(none))
	}
}
