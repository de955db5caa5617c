package drafting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lazypower/prospector/internal/store"
)

// ArtifactBase returns the file stem for a company's draft.
func ArtifactBase(companyName, draftID string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, companyName)
	return name + "_" + draftID
}

// WriteArtifacts writes {Company}_{id}.json and .md into dir.
func WriteArtifacts(dir, companyName string, d *store.Draft) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create drafts dir: %w", err)
	}
	base := filepath.Join(dir, ArtifactBase(companyName, d.ID))

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := os.WriteFile(base+".json", data, 0o644); err != nil {
		return fmt.Errorf("write draft json: %w", err)
	}

	md := "# " + d.Subject + "\n\n" + d.Body + "\n\nSources: " + strings.Join(d.Sources, ", ") + "\n"
	if err := os.WriteFile(base+".md", []byte(md), 0o644); err != nil {
		return fmt.Errorf("write draft md: %w", err)
	}
	return nil
}
