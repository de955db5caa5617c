package store

import (
	"testing"
)

func TestReplaceContexts(t *testing.T) {
	db := testDB(t)

	ctx := map[int64][]Evidence{
		1: {{EventID: "e1", CompanyID: 1, URL: "https://a.com/1", Title: "one", Similarity: 0.9}},
		2: {},
	}
	if err := db.ReplaceContexts(ctx); err != nil {
		t.Fatalf("ReplaceContexts: %v", err)
	}

	got, err := db.LoadContexts()
	if err != nil {
		t.Fatalf("LoadContexts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("companies = %d, want 2", len(got))
	}
	if len(got[1]) != 1 || got[1][0].Similarity != 0.9 {
		t.Errorf("company 1 = %+v", got[1])
	}
	if items, ok := got[2]; !ok || items == nil || len(items) != 0 {
		t.Errorf("company 2 should be present with no evidence, got %#v (present=%v)", items, ok)
	}
}

func TestReplaceContextsOverwrites(t *testing.T) {
	db := testDB(t)

	db.ReplaceContexts(map[int64][]Evidence{1: {{EventID: "e1", CompanyID: 1}}})
	db.ReplaceContexts(map[int64][]Evidence{3: {{EventID: "e3", CompanyID: 3}}})

	got, _ := db.LoadContexts()
	if _, ok := got[1]; ok {
		t.Error("company 1 should be gone after replace")
	}
	if len(got[3]) != 1 {
		t.Errorf("company 3 = %+v", got[3])
	}
}
