package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directory maps institution names to notification addresses, with a default
// fallback for institutions that have no entry. Loaded once per process; not
// mutated at runtime.
type Directory struct {
	DefaultAddress string            `yaml:"default_address"`
	Institutions   map[string]string `yaml:"institutions"`
	Contact        Contact           `yaml:"contact"`
}

// Contact is the footer block rendered into outbound notices.
type Contact struct {
	Agency  string `yaml:"agency"`
	Website string `yaml:"website"`
	Phone   string `yaml:"phone"`
}

// DefaultDirectory returns the baked-in directory used when no YAML file is
// present.
func DefaultDirectory() Directory {
	return Directory{
		DefaultAddress: "enforcement@iras.gov.sg",
		Institutions: map[string]string{
			"UOB":  "holds@uob.example.com",
			"DBS":  "holds@dbs.example.com",
			"OCBC": "holds@ocbc.example.com",
			"HSBC": "holds@hsbc.example.com",
		},
		Contact: Contact{
			Agency:  "Inland Revenue Authority of Singapore (IRAS)",
			Website: "https://www.iras.gov.sg",
			Phone:   "1800 356 8300",
		},
	}
}

// LoadDirectory reads the institution directory from a YAML file, falling back
// to the baked-in defaults when the file does not exist.
func LoadDirectory(path string) (Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultDirectory(), nil
		}
		return Directory{}, err
	}
	dir := DefaultDirectory()
	if err := yaml.Unmarshal(raw, &dir); err != nil {
		return Directory{}, err
	}
	normalized := make(map[string]string, len(dir.Institutions))
	for name, addr := range dir.Institutions {
		normalized[strings.ToUpper(strings.TrimSpace(name))] = strings.TrimSpace(addr)
	}
	dir.Institutions = normalized
	return dir, nil
}

// Address resolves the notification address for an institution, falling back
// to the default address when the institution is unknown or empty.
func (d Directory) Address(institution string) string {
	if addr, ok := d.Institutions[strings.ToUpper(strings.TrimSpace(institution))]; ok && addr != "" {
		return addr
	}
	return d.DefaultAddress
}

// Names returns the known institution names. Order is not specified.
func (d Directory) Names() []string {
	out := make([]string, 0, len(d.Institutions))
	for name := range d.Institutions {
		out = append(out, name)
	}
	return out
}
