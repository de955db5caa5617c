package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CompanySpec is one target account in the companies file.
type CompanySpec struct {
	Name    string        `yaml:"name" validate:"required"`
	Domain  string        `yaml:"domain" validate:"required,hostname"`
	ICPTags []string      `yaml:"icp_tags"`
	Sources SourceConfigs `yaml:"sources"`
}

// SourceConfigs lists the feeds and job boards watched for a company.
type SourceConfigs struct {
	RSS  []string `yaml:"rss" validate:"dive,url"`
	Jobs []string `yaml:"jobs" validate:"dive,url"`
}

type CompaniesFile struct {
	Companies []CompanySpec `yaml:"companies" validate:"dive"`
}

// LoadCompanies reads and validates the companies YAML file.
func LoadCompanies(path string) ([]CompanySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading companies: %w", err)
	}
	companies, err := ParseCompanies(data)
	if err != nil {
		return nil, fmt.Errorf("companies %s: %w", path, err)
	}
	return companies, nil
}

// ParseCompanies decodes companies YAML. Domains must be unique.
func ParseCompanies(data []byte) ([]CompanySpec, error) {
	var f CompaniesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing companies: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("invalid companies: %w", err)
	}

	seen := make(map[string]bool, len(f.Companies))
	for _, c := range f.Companies {
		if seen[c.Domain] {
			return nil, fmt.Errorf("duplicate domain %q", c.Domain)
		}
		seen[c.Domain] = true
	}
	return f.Companies, nil
}
