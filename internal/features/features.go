// Package features derives boolean buying-signal flags from event text.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/lazypower/prospector/internal/logging"
	"github.com/lazypower/prospector/internal/store"
)

// Feature names produced by RegexClassifier.
const (
	FundingRecent      = "funding_recent"
	RoleVPHire         = "role_vp_hire"
	ComplianceKeywords = "compliance_keywords"
	HiringToken        = "hiring_token"
)

// Classifier maps an event's type and text to a feature set.
type Classifier interface {
	Classify(eventType, title, text string) store.FeatureSet
}

var (
	fundingRe    = regexp.MustCompile(`(?i)\b(raises|Series\s+[A-E]|seed funding|funding round)\b`)
	leadershipRe = regexp.MustCompile(`(?i)\b(VP|Head of|Chief|CISO|CTO|CMO)\b`)
	complianceRe = regexp.MustCompile(`(?i)\b(SOC2|HIPAA|GDPR|ISO 27001)\b`)
)

// RegexClassifier is the keyword detector set. Every flag is always present
// in the result, true or false.
type RegexClassifier struct{}

func (RegexClassifier) Classify(eventType, title, text string) store.FeatureSet {
	full := title + " " + text
	isRSS := eventType == store.EventTypeRSS
	isJob := eventType == store.EventTypeJob

	return store.FeatureSet{
		FundingRecent:      isRSS && fundingRe.MatchString(full),
		RoleVPHire:         (isRSS || isJob) && leadershipRe.MatchString(full),
		ComplianceKeywords: complianceRe.MatchString(full),
		HiringToken:        isJob,
	}
}

// Annotate classifies events and writes their feature sets. With all=false
// only events that have never been annotated are visited. Returns the number
// of events written.
func Annotate(ctx context.Context, db *store.DB, c Classifier, all bool, log *slog.Logger) (int, error) {
	log = logging.OrDefault(log)
	if c == nil {
		c = RegexClassifier{}
	}

	var events []store.Event
	var err error
	if all {
		events, err = db.ListEvents()
	} else {
		events, err = db.ListUnannotatedEvents()
	}
	if err != nil {
		return 0, fmt.Errorf("annotate: %w", err)
	}

	n := 0
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		fs := c.Classify(e.Type, e.Title, e.RawText)
		if err := db.SetFeatures(e.ID, fs); err != nil {
			return n, fmt.Errorf("annotate %s: %w", e.ID, err)
		}
		n++
	}

	log.Info("feature extraction complete", "events", n)
	return n, nil
}
