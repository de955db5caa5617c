package config

import (
	"testing"
)

func TestDefaultRules(t *testing.T) {
	r, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules: %v", err)
	}
	for _, f := range []string{"funding_recent", "role_vp_hire", "compliance_keywords", "hiring_token"} {
		if r.Weights[f] == 0 {
			t.Errorf("default weight for %s should be nonzero", f)
		}
	}
	if r.Decay.HalfLifeDays <= 0 {
		t.Errorf("HalfLifeDays = %v", r.Decay.HalfLifeDays)
	}
}

func TestLoadRules(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
weights:
  funding_recent: 10
  unknown_feature: 0
decay:
  half_life_days: 7
`)
	r, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if r.Weights["funding_recent"] != 10 || r.Decay.HalfLifeDays != 7 {
		t.Errorf("got %+v", r)
	}
}

func TestParseRulesInvalid(t *testing.T) {
	tests := map[string]string{
		"no weights":     "decay:\n  half_life_days: 7\n",
		"zero half-life": "weights:\n  a: 1\ndecay:\n  half_life_days: 0\n",
		"bad yaml":       "weights: [",
	}
	for name, data := range tests {
		if _, err := ParseRules([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
