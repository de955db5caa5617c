package store

import (
	"testing"
	"time"
)

func TestEventIDDeterministic(t *testing.T) {
	a := EventID(1, EventTypeRSS, "https://acme.com/news/1")
	b := EventID(1, EventTypeRSS, "https://acme.com/news/1")
	c := EventID(2, EventTypeRSS, "https://acme.com/news/1")
	d := EventID(1, EventTypeJob, "https://acme.com/news/1")

	if a != b {
		t.Error("same inputs should produce same id")
	}
	if a == c || a == d {
		t.Error("company and type must be part of the id")
	}
	if len(a) != 40 {
		t.Errorf("expected 40-char sha1 hex, got %d", len(a))
	}
}

func TestInsertEventIdempotent(t *testing.T) {
	db := testDB(t)
	cid := seedCompany(t, db, "acme.com")

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := &Event{
		ID:        EventID(cid, EventTypeRSS, "https://acme.com/a"),
		CompanyID: cid,
		Source:    "https://acme.com/feed",
		Type:      EventTypeRSS,
		Time:      &ts,
		URL:       "https://acme.com/a",
		Title:     "Acme raises Series B",
		RawText:   "summary",
	}

	inserted, err := db.InsertEvent(e)
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if !inserted {
		t.Error("first insert should write a row")
	}

	again := *e
	again.Title = "changed title"
	inserted, err = db.InsertEvent(&again)
	if err != nil {
		t.Fatalf("InsertEvent again: %v", err)
	}
	if inserted {
		t.Error("second insert should be ignored")
	}

	n, _ := db.CountEvents()
	if n != 1 {
		t.Errorf("event count = %d, want 1", n)
	}

	got, err := db.GetEvent(e.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Title != "Acme raises Series B" {
		t.Errorf("title = %q, first write should win", got.Title)
	}
	if got.Time == nil || !got.Time.Equal(ts) {
		t.Errorf("time = %v, want %v", got.Time, ts)
	}
}

func TestInsertEventNilTime(t *testing.T) {
	db := testDB(t)
	cid := seedCompany(t, db, "acme.com")

	e := &Event{ID: "job-1", CompanyID: cid, Source: "board", Type: EventTypeJob, Title: "VP Sales"}
	if _, err := db.InsertEvent(e); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	got, _ := db.GetEvent("job-1")
	if got.Time != nil {
		t.Errorf("time = %v, want nil", got.Time)
	}
	if len(got.Features) != 0 {
		t.Errorf("features = %v, want empty", got.Features)
	}
}

func TestSetFeaturesAndUnannotated(t *testing.T) {
	db := testDB(t)
	cid := seedCompany(t, db, "acme.com")

	db.InsertEvent(&Event{ID: "e1", CompanyID: cid, Source: "s", Type: EventTypeRSS})
	db.InsertEvent(&Event{ID: "e2", CompanyID: cid, Source: "s", Type: EventTypeJob})

	pending, err := db.ListUnannotatedEvents()
	if err != nil {
		t.Fatalf("ListUnannotatedEvents: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if err := db.SetFeatures("e1", FeatureSet{"funding_recent": true, "hiring_token": false}); err != nil {
		t.Fatalf("SetFeatures: %v", err)
	}

	pending, _ = db.ListUnannotatedEvents()
	if len(pending) != 1 || pending[0].ID != "e2" {
		t.Errorf("pending after annotate = %+v, want only e2", pending)
	}

	got, _ := db.GetEvent("e1")
	if !got.Features["funding_recent"] {
		t.Error("funding_recent should be true")
	}
}

func TestSetFeaturesUnknownEvent(t *testing.T) {
	db := testDB(t)

	if err := db.SetFeatures("missing", FeatureSet{"x": true}); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestListEventsInsertionOrder(t *testing.T) {
	db := testDB(t)
	cid := seedCompany(t, db, "acme.com")

	for _, id := range []string{"zzz", "aaa", "mmm"} {
		db.InsertEvent(&Event{ID: id, CompanyID: cid, Source: "s", Type: EventTypeRSS})
	}

	events, err := db.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	want := []string{"zzz", "aaa", "mmm"}
	for i, e := range events {
		if e.ID != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, e.ID, want[i])
		}
	}
}
