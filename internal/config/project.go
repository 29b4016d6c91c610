package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ethpandaops/allure-runtime/pkg/labels"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"gopkg.in/yaml.v3"
)

// Project is the content of the project file (allure.yaml).
type Project struct {
	ResultsDir  string                 `yaml:"resultsDir,omitempty"`
	Labels      []model.Label          `yaml:"labels,omitempty"`
	Links       labels.LinkTemplates   `yaml:"links,omitempty"`
	Environment *model.EnvironmentInfo `yaml:"environment,omitempty"`
	Categories  []model.Category       `yaml:"categories,omitempty"`
}

// LoadProject reads the project file at path. A missing file yields an
// empty project.
func LoadProject(path string) (*Project, error) {
	project := &Project{}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if errors.Is(err, fs.ErrNotExist) {
		return project, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, project); err != nil {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}

	return project, nil
}

// SaveProject writes p to path.
func SaveProject(path string, p *Project) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode project file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write project file %s: %w", path, err)
	}
	return nil
}
