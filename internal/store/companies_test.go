package store

import (
	"reflect"
	"testing"
)

func TestUpsertCompanyCreates(t *testing.T) {
	db := testDB(t)

	c := &Company{Name: "Acme", Domain: "acme.com", ICPTags: []string{"fintech", "series-b"}}
	if err := db.UpsertCompany(c); err != nil {
		t.Fatalf("UpsertCompany: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected company id to be set")
	}

	got, err := db.GetCompany(c.ID)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if got == nil {
		t.Fatal("expected company, got nil")
	}
	if got.Name != "Acme" || got.Domain != "acme.com" {
		t.Errorf("got %+v", got)
	}
	if !reflect.DeepEqual(got.ICPTags, []string{"fintech", "series-b"}) {
		t.Errorf("ICPTags = %v", got.ICPTags)
	}
}

func TestUpsertCompanyExtendsTags(t *testing.T) {
	db := testDB(t)

	first := &Company{Name: "Acme", Domain: "acme.com", ICPTags: []string{"fintech"}}
	db.UpsertCompany(first)

	second := &Company{Name: "Acme Renamed", Domain: "acme.com", ICPTags: []string{"fintech", "healthcare"}}
	if err := db.UpsertCompany(second); err != nil {
		t.Fatalf("UpsertCompany: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("second upsert id = %d, want %d", second.ID, first.ID)
	}

	got, _ := db.GetCompanyByDomain("acme.com")
	if got.Name != "Acme" {
		t.Errorf("name = %q, want original name kept", got.Name)
	}
	if !reflect.DeepEqual(got.ICPTags, []string{"fintech", "healthcare"}) {
		t.Errorf("ICPTags = %v, want [fintech healthcare]", got.ICPTags)
	}

	all, _ := db.ListCompanies()
	if len(all) != 1 {
		t.Errorf("expected 1 company, got %d", len(all))
	}
}

func TestGetCompanyNotFound(t *testing.T) {
	db := testDB(t)

	c, err := db.GetCompany(42)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if c != nil {
		t.Error("expected nil for nonexistent company")
	}
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		existing, add, want []string
	}{
		{nil, []string{"a", "b"}, []string{"a", "b"}},
		{[]string{"a"}, []string{"a", "b"}, []string{"a", "b"}},
		{[]string{"a"}, []string{" ", "a"}, []string{"a"}},
		{[]string{"b", "a"}, nil, []string{"b", "a"}},
	}
	for _, tt := range tests {
		got := mergeTags(tt.existing, tt.add)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("mergeTags(%v, %v) = %v, want %v", tt.existing, tt.add, got, tt.want)
		}
	}
}
