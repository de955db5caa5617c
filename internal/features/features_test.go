package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/prospector/internal/store"
)

func TestRegexClassifier(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		title     string
		text      string
		want      store.FeatureSet
	}{
		{
			name:      "funding rss",
			eventType: store.EventTypeRSS,
			title:     "Acme raises Series B",
			want:      store.FeatureSet{FundingRecent: true, RoleVPHire: false, ComplianceKeywords: false, HiringToken: false},
		},
		{
			name:      "funding ignored on job",
			eventType: store.EventTypeJob,
			title:     "Series B startup hiring",
			want:      store.FeatureSet{FundingRecent: false, RoleVPHire: false, ComplianceKeywords: false, HiringToken: true},
		},
		{
			name:      "leadership job",
			eventType: store.EventTypeJob,
			title:     "Head of Security",
			text:      "Own our SOC2 program",
			want:      store.FeatureSet{FundingRecent: false, RoleVPHire: true, ComplianceKeywords: true, HiringToken: true},
		},
		{
			name:      "case insensitive compliance",
			eventType: store.EventTypeRSS,
			text:      "now gdpr and hipaa ready",
			want:      store.FeatureSet{FundingRecent: false, RoleVPHire: false, ComplianceKeywords: true, HiringToken: false},
		},
		{
			name:      "word bounded",
			eventType: store.EventTypeRSS,
			title:     "Chiefly a product update about CTOs",
			want:      store.FeatureSet{FundingRecent: false, RoleVPHire: false, ComplianceKeywords: false, HiringToken: false},
		},
		{
			name:      "empty text",
			eventType: store.EventTypeRSS,
			want:      store.FeatureSet{FundingRecent: false, RoleVPHire: false, ComplianceKeywords: false, HiringToken: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RegexClassifier{}.Classify(tt.eventType, tt.title, tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := RegexClassifier{}
	first := c.Classify(store.EventTypeRSS, "Acme raises seed funding", "new CISO joins")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(store.EventTypeRSS, "Acme raises seed funding", "new CISO joins"))
	}
}

func TestAnnotate(t *testing.T) {
	db, err := store.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	c := &store.Company{Name: "Acme", Domain: "acme.com"}
	require.NoError(t, db.UpsertCompany(c))

	_, err = db.InsertEvent(&store.Event{ID: "e1", CompanyID: c.ID, Source: "feed", Type: store.EventTypeRSS, Title: "Acme raises Series B"})
	require.NoError(t, err)
	_, err = db.InsertEvent(&store.Event{ID: "e2", CompanyID: c.ID, Source: "board", Type: store.EventTypeJob, Title: "VP Sales"})
	require.NoError(t, err)

	n, err := Annotate(context.Background(), db, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	e1, err := db.GetEvent("e1")
	require.NoError(t, err)
	assert.True(t, e1.Features[FundingRecent])
	assert.False(t, e1.Features[HiringToken])

	e2, err := db.GetEvent("e2")
	require.NoError(t, err)
	assert.True(t, e2.Features[RoleVPHire])
	assert.True(t, e2.Features[HiringToken])

	// already annotated events are skipped unless all is set
	n, err = Annotate(context.Background(), db, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = Annotate(context.Background(), db, nil, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
