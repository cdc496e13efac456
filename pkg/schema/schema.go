// Package schema defines the Go struct types for the definitions YAML
// document and provides strict YAML parsing.
package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// APIVersion is the only supported document version.
const APIVersion = "upkeep/v1"

// Definitions is the top-level document declaring features, steps and
// scenarios.
type Definitions struct {
	APIVersion string     `yaml:"apiVersion" json:"apiVersion" jsonschema:"required,enum=upkeep/v1"`
	Features   []Feature  `yaml:"features,omitempty"  json:"features,omitempty"`
	Steps      []Step     `yaml:"steps,omitempty"     json:"steps,omitempty"`
	Scenarios  []Scenario `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
}

// Feature declares a host capability and how to detect it.
type Feature struct {
	Name        string    `yaml:"name"                  json:"name"                  jsonschema:"required,pattern=^[a-z][a-z0-9_]*$"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Detect      Detect    `yaml:"detect"                json:"detect"                jsonschema:"required"`
	Database    *Database `yaml:"database,omitempty"    json:"database,omitempty"`
}

// Detect is a detection rule. Exactly one of File or Command is set.
// A command detects the feature when it exits 0; its trimmed stdout becomes
// the feature version.
type Detect struct {
	File           string            `yaml:"file,omitempty"            json:"file,omitempty"`
	Command        []string          `yaml:"command,omitempty"         json:"command,omitempty"`
	VersionCommand []string          `yaml:"version_command,omitempty" json:"version_command,omitempty"`
	Attributes     map[string]string `yaml:"attributes,omitempty"      json:"attributes,omitempty"`
}

// Database makes a feature queryable through psql.
type Database struct {
	PSQL []string `yaml:"psql,omitempty" json:"psql,omitempty"`
}

// Step declares a check or remediation. Exactly one of Command, Query or SQL
// is set.
type Step struct {
	Name        string   `yaml:"name"                  json:"name"                  jsonschema:"required,pattern=^[a-z0-9][a-z0-9_.-]*$"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"        json:"tags,omitempty"`
	Requires    []string `yaml:"requires,omitempty"    json:"requires,omitempty"`
	When        string   `yaml:"when,omitempty"        json:"when,omitempty"`
	Spinner     string   `yaml:"spinner,omitempty"     json:"spinner,omitempty"`

	Command []string `yaml:"command,omitempty" json:"command,omitempty"`
	Query   string   `yaml:"query,omitempty"   json:"query,omitempty"`
	SQL     string   `yaml:"sql,omitempty"     json:"sql,omitempty"`
	Feature string   `yaml:"feature,omitempty" json:"feature,omitempty"`
	FailIf  string   `yaml:"fail_if,omitempty" json:"fail_if,omitempty"`

	Next  []string `yaml:"next,omitempty"  json:"next,omitempty"`
	On    string   `yaml:"on,omitempty"    json:"on,omitempty"    jsonschema:"enum=fail,enum=always"`
	Rerun bool     `yaml:"rerun,omitempty" json:"rerun,omitempty"`
}

// Scenario declares a tag-filtered group of steps.
type Scenario struct {
	Name        string   `yaml:"name"                  json:"name"                  jsonschema:"required,pattern=^[a-z0-9][a-z0-9_.-]*$"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"        json:"tags,omitempty"`
	When        string   `yaml:"when,omitempty"        json:"when,omitempty"`
	Filter      Filter   `yaml:"filter,omitempty"      json:"filter,omitempty"`
}

// Filter selects the steps of a scenario by tag.
type Filter struct {
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// LoadFile reads and strictly parses a definitions file.
func LoadFile(path string) (*Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load strictly parses definitions, rejecting unknown fields.
func Load(r io.Reader) (*Definitions, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs Definitions
	if err := dec.Decode(&defs); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode definitions: empty document")
		}
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	return &defs, nil
}

// Parse strictly parses definitions from memory.
func Parse(data []byte) (*Definitions, error) {
	return Load(bytes.NewReader(data))
}
