package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/ormasoftchile/upkeep/pkg/scenario"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // JSON-path-like location (e.g., "steps[0].next[1]")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// HasErrors reports whether errs contains anything more severe than a warning.
func HasErrors(errs []*ValidationError) bool {
	return slices.ContainsFunc(errs, func(e *ValidationError) bool {
		return e.Severity != "warning"
	})
}

// Variables visible to expressions.
var (
	whenVars   = map[string]any{"features": map[string]any{}}
	failIfVars = map[string]any{
		"features":  map[string]any{},
		"rows":      []any{},
		"output":    "",
		"exit_code": 0,
	}
)

// ValidateFile performs the full 3-phase validation pipeline on a
// definitions file.
// Phase 1: Structural (strict YAML decode)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
func ValidateFile(path string) (*Definitions, []*ValidationError) {
	defs, err := LoadFile(path)
	if err != nil {
		return nil, []*ValidationError{{
			Phase:    "structural",
			Path:     "",
			Message:  err.Error(),
			Severity: "error",
		}}
	}
	return defs, Validate(defs)
}

// Validate runs the semantic and domain phases on parsed definitions.
func Validate(defs *Definitions) []*ValidationError {
	var all []*ValidationError
	all = append(all, validateSemantic(defs)...)
	all = append(all, ValidateDomain(defs)...)
	return all
}

func semanticError(format string, args ...any) []*ValidationError {
	return []*ValidationError{{
		Phase:    "semantic",
		Path:     "",
		Message:  fmt.Sprintf(format, args...),
		Severity: "error",
	}}
}

// validateSemantic validates the definitions against the JSON Schema.
func validateSemantic(defs *Definitions) []*ValidationError {
	data, err := json.Marshal(defs)
	if err != nil {
		return semanticError("marshal for schema validation: %v", err)
	}
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return semanticError("generate schema: %v", err)
	}
	schemaDoc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return semanticError("unmarshal schema: %v", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("definitions-v1.json", schemaDoc); err != nil {
		return semanticError("add schema resource: %v", err)
	}
	sch, err := c.Compile("definitions-v1.json")
	if err != nil {
		return semanticError("compile schema: %v", err)
	}

	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return semanticError("unmarshal document: %v", err)
	}

	err = sch.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return semanticError("%v", err)
	}
	var errs []*ValidationError
	for _, cause := range flattenValidationErrors(ve) {
		errs = append(errs, &ValidationError{
			Phase:    "semantic",
			Path:     strings.Join(cause.InstanceLocation, "/"),
			Message:  fmt.Sprintf("%v", cause.ErrorKind),
			Severity: "error",
		})
	}
	return errs
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

type domainCheck struct {
	errs []*ValidationError
}

func (d *domainCheck) add(severity, path, format string, args ...any) {
	d.errs = append(d.errs, &ValidationError{
		Phase:    "domain",
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: severity,
	})
}

func (d *domainCheck) errorf(path, format string, args ...any) {
	d.add("error", path, format, args...)
}

func (d *domainCheck) warnf(path, format string, args ...any) {
	d.add("warning", path, format, args...)
}

func (d *domainCheck) expression(path, expr string, vars map[string]any) {
	if err := scenario.CompileBool(expr, vars); err != nil {
		d.errorf(path, "%v", err)
	}
}

// ValidateDomain performs Phase 3 domain-level validation.
// Returns a slice of errors; empty means valid.
func ValidateDomain(defs *Definitions) []*ValidationError {
	d := &domainCheck{}

	if defs.APIVersion != APIVersion {
		d.errorf("apiVersion", "unrecognized apiVersion %q, expected %q", defs.APIVersion, APIVersion)
	}

	features := make(map[string]*Feature)
	for i := range defs.Features {
		f := &defs.Features[i]
		path := fmt.Sprintf("features[%d]", i)
		if _, dup := features[f.Name]; dup {
			d.errorf(path+".name", "duplicate feature %q", f.Name)
		}
		features[f.Name] = f

		hasFile, hasCommand := f.Detect.File != "", len(f.Detect.Command) > 0
		switch {
		case hasFile == hasCommand:
			d.errorf(path+".detect", "exactly one of file or command is required")
		case hasCommand && len(f.Detect.VersionCommand) > 0:
			d.warnf(path+".detect.version_command", "ignored: command detection takes the version from the command output")
		}
	}

	steps := make(map[string]bool)
	for _, s := range defs.Steps {
		steps[s.Name] = true
	}
	seen := make(map[string]bool)
	for i, s := range defs.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if seen[s.Name] {
			d.errorf(path+".name", "duplicate step %q", s.Name)
		}
		seen[s.Name] = true

		actions := 0
		for _, set := range []bool{len(s.Command) > 0, s.Query != "", s.SQL != ""} {
			if set {
				actions++
			}
		}
		if actions != 1 {
			d.errorf(path, "exactly one of command, query or sql is required")
		}
		if s.Query != "" || s.SQL != "" {
			switch f, ok := features[s.Feature]; {
			case s.Feature == "":
				d.errorf(path+".feature", "query and sql steps need a database feature")
			case !ok:
				d.errorf(path+".feature", "unknown feature %q", s.Feature)
			case f.Database == nil:
				d.errorf(path+".feature", "feature %q has no database block", s.Feature)
			}
		} else if s.Feature != "" {
			d.warnf(path+".feature", "only query and sql steps use feature")
		}
		if s.SQL != "" && s.FailIf != "" {
			d.warnf(path+".fail_if", "sql steps fail only when psql fails; fail_if is ignored")
		}

		for j, r := range s.Requires {
			if _, ok := features[r]; !ok {
				d.errorf(fmt.Sprintf("%s.requires[%d]", path, j), "unknown feature %q", r)
			}
		}
		for j, n := range s.Next {
			p := fmt.Sprintf("%s.next[%d]", path, j)
			switch {
			case n == s.Name:
				d.errorf(p, "step cannot offer itself")
			case !steps[n]:
				d.errorf(p, "unknown step %q", n)
			}
		}
		if s.On != "" && len(s.Next) == 0 {
			d.warnf(path+".on", "has no effect without next")
		}
		d.expression(path+".when", s.When, whenVars)
		d.expression(path+".fail_if", s.FailIf, failIfVars)
	}

	scenarios := make(map[string]bool)
	for i, sc := range defs.Scenarios {
		path := fmt.Sprintf("scenarios[%d]", i)
		if scenarios[sc.Name] {
			d.errorf(path+".name", "duplicate scenario %q", sc.Name)
		}
		scenarios[sc.Name] = true
		d.expression(path+".when", sc.When, whenVars)

		matched := slices.ContainsFunc(defs.Steps, func(s Step) bool {
			return hasAll(s.Tags, sc.Filter.Tags)
		})
		if !matched {
			d.warnf(path+".filter", "no step carries tags %v", sc.Filter.Tags)
		}
	}
	return d.errs
}

func hasAll(have, want []string) bool {
	for _, t := range want {
		if !slices.Contains(have, t) {
			return false
		}
	}
	return true
}
