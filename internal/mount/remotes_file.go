package mount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	schemafs "github.com/tyemirov/dsk/schema"
	"github.com/tyemirov/dsk/internal/shared"
)

const (
	remotesSchemaFileNameConstant          = "remotes.schema.json"
	remotesFileReadErrorTemplateConstant   = "unable to read remotes file %s: %w"
	remotesFileParseErrorTemplateConstant  = "unable to parse remotes file %s: %w"
	remotesFileSchemaErrorTemplateConstant = "remotes file %s failed validation: %w"
	schemaReadErrorTemplateConstant        = "read remotes schema: %w"
	schemaUnmarshalErrorTemplateConstant   = "unmarshal remotes schema: %w"
	schemaResourceErrorTemplateConstant    = "add remotes schema resource: %w"
	schemaCompileErrorTemplateConstant     = "compile remotes schema: %w"
)

var (
	remotesSchema     *jsonschema.Schema
	schemaCompileOnce sync.Once
	schemaCompileErr  error
)

type remotesFileDocument struct {
	Remotes []RemoteConfiguration `yaml:"remotes"`
}

func compileRemotesSchema() error {
	schemaCompileOnce.Do(func() {
		schemaData, readError := schemafs.FS.ReadFile(remotesSchemaFileNameConstant)
		if readError != nil {
			schemaCompileErr = fmt.Errorf(schemaReadErrorTemplateConstant, readError)
			return
		}

		schemaDocument, unmarshalError := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
		if unmarshalError != nil {
			schemaCompileErr = fmt.Errorf(schemaUnmarshalErrorTemplateConstant, unmarshalError)
			return
		}

		compiler := jsonschema.NewCompiler()
		if resourceError := compiler.AddResource(remotesSchemaFileNameConstant, schemaDocument); resourceError != nil {
			schemaCompileErr = fmt.Errorf(schemaResourceErrorTemplateConstant, resourceError)
			return
		}

		compiledSchema, compileError := compiler.Compile(remotesSchemaFileNameConstant)
		if compileError != nil {
			schemaCompileErr = fmt.Errorf(schemaCompileErrorTemplateConstant, compileError)
			return
		}
		remotesSchema = compiledSchema
	})

	return schemaCompileErr
}

// LoadRemotesFile reads, validates, and decodes a YAML remotes file.
func LoadRemotesFile(fileSystem shared.FileSystem, filePath string) ([]RemoteConfiguration, error) {
	fileContent, readError := fileSystem.ReadFile(filePath)
	if readError != nil {
		return nil, fmt.Errorf(remotesFileReadErrorTemplateConstant, filePath, readError)
	}

	if validationError := validateRemotesDocument(filePath, fileContent); validationError != nil {
		return nil, validationError
	}

	var document remotesFileDocument
	if decodeError := yaml.Unmarshal(fileContent, &document); decodeError != nil {
		return nil, fmt.Errorf(remotesFileParseErrorTemplateConstant, filePath, decodeError)
	}

	return document.Remotes, nil
}

func validateRemotesDocument(filePath string, fileContent []byte) error {
	if compileError := compileRemotesSchema(); compileError != nil {
		return compileError
	}

	var genericDocument any
	if decodeError := yaml.Unmarshal(fileContent, &genericDocument); decodeError != nil {
		return fmt.Errorf(remotesFileParseErrorTemplateConstant, filePath, decodeError)
	}

	normalizedDocument, normalizationError := normalizeForValidation(genericDocument)
	if normalizationError != nil {
		return fmt.Errorf(remotesFileParseErrorTemplateConstant, filePath, normalizationError)
	}

	if validationError := remotesSchema.Validate(normalizedDocument); validationError != nil {
		return fmt.Errorf(remotesFileSchemaErrorTemplateConstant, filePath, validationError)
	}
	return nil
}

// normalizeForValidation round-trips through JSON so YAML-specific value types
// match what the schema validator expects.
func normalizeForValidation(document any) (any, error) {
	encoded, encodeError := json.Marshal(document)
	if encodeError != nil {
		return nil, encodeError
	}
	var normalized any
	if decodeError := json.Unmarshal(encoded, &normalized); decodeError != nil {
		return nil, decodeError
	}
	return normalized, nil
}
