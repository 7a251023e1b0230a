package store

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/segmentio/encoding/json"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/thinkwright/prompt-evals/internal/rubric"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	leversSchema *jsonschema.Schema
	modelSchema  *jsonschema.Schema
)

var schemaPrinter = message.NewPrinter(language.English)

func init() {
	leversSchema = mustCompileSchema("levers.schema.json")
	modelSchema = mustCompileSchema("model.schema.json")
}

func mustCompileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("failed to read embedded %s: %v", name, err))
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidationError reports a rubric file that does not match its schema.
type ValidationError struct {
	File     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid rubric file: %s", e.File, strings.Join(e.Problems, "; "))
}

func validateDocument(sch *jsonschema.Schema, file string, doc any) error {
	err := sch.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s: schema: %w", file, err)
	}
	var problems []string
	collectSchemaErrors(ve, &problems)
	return &ValidationError{File: file, Problems: problems}
}

func collectSchemaErrors(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, out)
	}
}

// checkLevers validates a candidate levers list with the same schema Open
// applies to levers files.
func checkLevers(levers []rubric.Lever) error {
	return checkCandidate(leversSchema, "levers", leversDocument{Levers: levers})
}

// checkModel validates a candidate profile with the model file schema.
func checkModel(m rubric.ModelConfig) error {
	return checkCandidate(modelSchema, "model "+m.ID, m)
}

func checkCandidate(sch *jsonschema.Schema, file string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", file, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding %s: %w", file, err)
	}
	if err := validateDocument(sch, file, doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
