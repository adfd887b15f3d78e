package flow

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every *.yaml flow definition in dir into a MemoryRepository.
func LoadDir(dir string) (*MemoryRepository, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("error reading directory: %w", err)
	}

	repo := NewMemoryRepository()
	for _, file := range files {
		f, err := ReadFile(file)
		if err != nil {
			return nil, err
		}
		repo.Register(f)
	}

	return repo, nil
}

// ReadFile parses a single YAML flow definition.
func ReadFile(file string) (*Flow, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}

	var f Flow
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("error unmarshalling YAML: %w", err)
	}
	if f.ID == "" {
		return nil, fmt.Errorf("flow file %s has no id", file)
	}

	return &f, nil
}
