package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk project configuration, usually ttc.yaml.
type File struct {
	Std      string          `yaml:"std,omitempty"`
	Target   string          `yaml:"target,omitempty"`
	Output   string          `yaml:"output,omitempty"`
	Warnings map[string]bool `yaml:"warnings,omitempty"`
	Features map[string]bool `yaml:"features,omitempty"`
}

func ParseFile(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, err
	}
	return f, nil
}

// LoadFile reads a project file and applies it on top of the current settings.
// The target is returned rather than applied, since resolving it needs the host.
func (c *Config) LoadFile(path string) (target string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Apply(f); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return f.Target, nil
}

func (c *Config) Apply(f File) error {
	if f.Std != "" {
		if err := c.ApplyStd(f.Std); err != nil {
			return err
		}
	}
	if f.Output != "" {
		c.OutputFile = f.Output
	}
	for name, enabled := range f.Warnings {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("unknown warning '%s'", name)
		}
		c.SetWarning(w, enabled)
	}
	for name, enabled := range f.Features {
		ft, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("unknown feature '%s'", name)
		}
		c.SetFeature(ft, enabled)
	}
	return nil
}
