package store

import (
	"errors"
	"testing"
)

func seedDraft(t *testing.T, db *DB, id string, companyID, createdAt int64, variant int) *Draft {
	t.Helper()
	d := &Draft{
		ID:        id,
		CompanyID: companyID,
		CreatedAt: createdAt,
		Variant:   variant,
		Subject:   "Congrats on the raise",
		Body:      "Saw the news.",
		Sources:   []string{"https://acme.com/news"},
		Evidence:  []Evidence{{EventID: "e1", CompanyID: companyID, URL: "https://acme.com/news"}},
	}
	if err := db.InsertDraft(d); err != nil {
		t.Fatalf("InsertDraft %s: %v", id, err)
	}
	return d
}

func TestInsertDraftDefaults(t *testing.T) {
	db := testDB(t)
	cid := seedCompany(t, db, "acme.com")

	seedDraft(t, db, "abcd1234", cid, 1000, 0)

	got, err := db.GetDraft("abcd1234")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if got == nil {
		t.Fatal("expected draft")
	}
	if got.Status != StatusQueued {
		t.Errorf("status = %q, want queued", got.Status)
	}
	if got.Persona != "sdr" {
		t.Errorf("persona = %q, want sdr", got.Persona)
	}
	if got.Metrics != "{}" {
		t.Errorf("metrics = %q, want {}", got.Metrics)
	}
	if len(got.Sources) != 1 || got.Sources[0] != "https://acme.com/news" {
		t.Errorf("sources = %v", got.Sources)
	}
	if len(got.Evidence) != 1 || got.Evidence[0].EventID != "e1" {
		t.Errorf("evidence = %+v", got.Evidence)
	}
}

func TestGetDraftNotFound(t *testing.T) {
	db := testDB(t)

	d, err := db.GetDraft("nope")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if d != nil {
		t.Error("expected nil for unknown draft")
	}
}

func TestListDraftsFilters(t *testing.T) {
	db := testDB(t)
	a := seedCompany(t, db, "a.com")
	b := seedCompany(t, db, "b.com")

	seedDraft(t, db, "a-old", a, 1000, 0)
	seedDraft(t, db, "a-new-1", a, 2000, 1)
	seedDraft(t, db, "a-new-0", a, 2000, 0)
	seedDraft(t, db, "b-1", b, 1500, 0)
	db.UpdateDraftStatus("b-1", StatusApproved)

	all, err := db.ListDrafts(DraftFilter{})
	if err != nil {
		t.Fatalf("ListDrafts: %v", err)
	}
	want := []string{"a-new-0", "a-new-1", "b-1", "a-old"}
	if len(all) != len(want) {
		t.Fatalf("len = %d, want %d", len(all), len(want))
	}
	for i, d := range all {
		if d.ID != want[i] {
			t.Errorf("all[%d] = %s, want %s", i, d.ID, want[i])
		}
	}

	approved, _ := db.ListDrafts(DraftFilter{Status: StatusApproved})
	if len(approved) != 1 || approved[0].ID != "b-1" {
		t.Errorf("approved = %+v", approved)
	}

	forA, _ := db.ListDrafts(DraftFilter{CompanyID: a, Limit: 2})
	if len(forA) != 2 {
		t.Errorf("company a with limit = %d rows, want 2", len(forA))
	}
}

func TestUpdateDraftStatus(t *testing.T) {
	db := testDB(t)
	cid := seedCompany(t, db, "acme.com")
	seedDraft(t, db, "d1", cid, 1000, 0)

	if err := db.UpdateDraftStatus("d1", StatusRejected); err != nil {
		t.Fatalf("UpdateDraftStatus: %v", err)
	}
	got, _ := db.GetDraft("d1")
	if got.Status != StatusRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}

	err := db.UpdateDraftStatus("missing", StatusApproved)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCountDraftsByStatus(t *testing.T) {
	db := testDB(t)
	cid := seedCompany(t, db, "acme.com")
	seedDraft(t, db, "d1", cid, 1000, 0)
	seedDraft(t, db, "d2", cid, 1000, 1)
	seedDraft(t, db, "d3", cid, 1000, 2)
	db.UpdateDraftStatus("d3", StatusApproved)

	counts, err := db.CountDraftsByStatus(cid)
	if err != nil {
		t.Fatalf("CountDraftsByStatus: %v", err)
	}
	if counts[StatusQueued] != 2 || counts[StatusApproved] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
