package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Paths names the schema documents on disk. Base gates every slot.
type Paths struct {
	Base        string
	Event       string
	Throttle    string
	TestControl string
}

// Set holds the three validation slots. A nil slot disables validation
// for the endpoint using it.
type Set struct {
	Event       *Schema
	Throttle    *Schema
	TestControl *Schema
}

// Schema is a merged schema document and its compiled form.
type Schema struct {
	name       string
	compiled   *jsonschema.Schema
	compileErr error
}

// Load reads the base document and merges the optional fragments into it.
// Files that exist but cannot be read or decoded are reported as errors.
func Load(paths Paths, logger *scribe.Scribe) (Set, error) {
	var set Set

	if !exists(paths.Base) {
		logger.Warn().
			Str("file", paths.Base).
			Msg("Event Listener Schema File not found. No validation will be undertaken")
		return set, nil
	}

	base, err := readDocument(paths.Base)
	if err != nil {
		return set, err
	}
	logger.Debug().Str("file", paths.Base).Msg("Loaded the JSON schema file")

	if exists(paths.Throttle) {
		fragment, err := readDocument(paths.Throttle)
		if err != nil {
			return set, err
		}
		set.Throttle = Compile("throttle", Merge(base, fragment))
		logger.Debug().Str("file", paths.Throttle).Msg("Loaded the throttle schema")
	}

	if exists(paths.TestControl) {
		fragment, err := readDocument(paths.TestControl)
		if err != nil {
			return set, err
		}
		set.TestControl = Compile("testControl", Merge(base, fragment))
		logger.Debug().Str("file", paths.TestControl).Msg("Loaded the test control schema")
	}

	event := base
	if exists(paths.Event) {
		fragment, err := readDocument(paths.Event)
		if err != nil {
			return set, err
		}
		event = Merge(base, fragment)
		logger.Debug().Str("file", paths.Event).Msg("Updated the JSON schema file")
	}
	set.Event = Compile("event", event)

	for _, s := range []*Schema{set.Event, set.Throttle, set.TestControl} {
		if s != nil && s.compileErr != nil {
			logger.Error().
				Str("schema", s.name).
				AnErr("error", s.compileErr).
				Msg("Schema failed to compile, validations against it will be reported as schema errors")
		}
	}

	return set, nil
}

// Merge returns the shallow union of base and fragment; fragment keys win.
// Neither argument is modified.
func Merge(base, fragment map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(fragment))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range fragment {
		merged[k] = v
	}
	return merged
}

// Compile compiles a schema document. A compile failure is kept on the
// returned Schema rather than returned.
func Compile(name string, doc map[string]interface{}) *Schema {
	compiler := jsonschema.NewCompiler()

	resource := name + ".json"
	if err := compiler.AddResource(resource, doc); err != nil {
		return &Schema{name: name, compileErr: fmt.Errorf("error adding schema resource: %w", err)}
	}

	compiled, err := compiler.Compile(resource)
	if err != nil {
		return &Schema{name: name, compileErr: fmt.Errorf("error compiling schema: %w", err)}
	}

	return &Schema{name: name, compiled: compiled}
}

// Validate checks body against the schema. It never fails the caller; the
// outcome is described by the returned Result. A nil Schema only checks that
// the body is JSON.
func (s *Schema) Validate(body []byte) Result {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return Result{Kind: MalformedJSON, Reason: err.Error()}
	}

	if s == nil {
		return Result{Kind: Skipped}
	}

	if s.compileErr != nil {
		return Result{Kind: SchemaInvalid, Reason: s.compileErr.Error()}
	}

	if err := s.compiled.Validate(data); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return Result{Kind: DataInvalid, Reason: validationErr.Error()}
		}
		return Result{Kind: SchemaInvalid, Reason: err.Error()}
	}

	return Result{Kind: Valid}
}

func readDocument(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading schema file %s: %w", path, err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing schema file %s: %w", path, err)
	}

	return doc, nil
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
