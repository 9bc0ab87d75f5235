// Package dbtproject reads the parts of a dbt project and its profiles that
// the pipeline needs to find the models dbt builds.
package dbtproject

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"duck-elt/internal/domain"
)

// DefaultSchema is the schema the dbt-duckdb adapter writes to when the
// target does not set one.
const DefaultSchema = "main"

// Project is the subset of dbt_project.yml used here.
type Project struct {
	Name    string `yaml:"name"`
	Profile string `yaml:"profile"`
}

// Output is one target of a profile.
type Output struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Schema   string `yaml:"schema"`
	Database string `yaml:"database"`
	Threads  int    `yaml:"threads"`
}

// Profile is one named entry of profiles.yml.
type Profile struct {
	Target  string            `yaml:"target"`
	Outputs map[string]Output `yaml:"outputs"`
}

// Target is the resolved active output of the project's profile.
type Target struct {
	Profile string
	Name    string
	Output
}

// SchemaOrDefault returns the target schema, or DefaultSchema when unset.
func (t *Target) SchemaOrDefault() string {
	if t.Schema == "" {
		return DefaultSchema
	}
	return t.Schema
}

// ReadProject parses {projectDir}/dbt_project.yml.
func ReadProject(projectDir string) (*Project, error) {
	var p Project
	if err := readYAML(filepath.Join(projectDir, "dbt_project.yml"), &p); err != nil {
		return nil, err
	}
	if p.Profile == "" {
		// dbt falls back to the project name.
		p.Profile = p.Name
	}
	if p.Profile == "" {
		return nil, domain.ErrValidation("dbt_project.yml in %s names no profile", projectDir)
	}
	return &p, nil
}

// ReadProfiles parses {profilesDir}/profiles.yml. Top-level keys that are
// not profiles (such as "config") are ignored.
func ReadProfiles(profilesDir string) (map[string]Profile, error) {
	var raw map[string]yaml.Node
	if err := readYAML(filepath.Join(profilesDir, "profiles.yml"), &raw); err != nil {
		return nil, err
	}
	profiles := make(map[string]Profile, len(raw))
	for name, node := range raw {
		if name == "config" {
			continue
		}
		var p Profile
		if err := node.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", name, err)
		}
		profiles[name] = p
	}
	return profiles, nil
}

// ResolveTarget finds the active output of the project's profile.
func ResolveTarget(projectDir, profilesDir string) (*Target, error) {
	project, err := ReadProject(projectDir)
	if err != nil {
		return nil, err
	}
	profiles, err := ReadProfiles(profilesDir)
	if err != nil {
		return nil, err
	}
	profile, ok := profiles[project.Profile]
	if !ok {
		return nil, domain.ErrNotFound("profile %q not found in %s", project.Profile, profilesDir)
	}

	name := profile.Target
	if name == "" {
		if len(profile.Outputs) != 1 {
			return nil, domain.ErrValidation("profile %q sets no target and has %d outputs",
				project.Profile, len(profile.Outputs))
		}
		for n := range profile.Outputs {
			name = n
		}
	}
	out, ok := profile.Outputs[name]
	if !ok {
		return nil, domain.ErrNotFound("target %q not found in profile %q (have %s)",
			name, project.Profile, strings.Join(outputNames(profile), ", "))
	}
	if strings.Contains(out.Schema, "{{") {
		return nil, domain.ErrValidation("target %q schema is templated: %s", name, out.Schema)
	}
	return &Target{Profile: project.Profile, Name: name, Output: out}, nil
}

func outputNames(p Profile) []string {
	names := make([]string, 0, len(p.Outputs))
	for n := range p.Outputs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound("%s does not exist", path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
