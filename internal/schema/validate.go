// Package schema validates written Allure results files against JSON schemas.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethpandaops/allure-runtime/pkg/writer"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaFile = "allure.schema.json"

var (
	resultSchema     *jsonschema.Schema
	containerSchema  *jsonschema.Schema
	categoriesSchema *jsonschema.Schema
	compileOnce      sync.Once
	compileErr       error
)

// compileSchemas compiles the embedded schema once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		data, err := FS.ReadFile("schemas/" + schemaFile)
		if err != nil {
			compileErr = fmt.Errorf("read allure schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal allure schema: %w", err)
			return
		}

		if err := compiler.AddResource(schemaFile, doc); err != nil {
			compileErr = fmt.Errorf("add allure schema resource: %w", err)
			return
		}

		if resultSchema, err = compiler.Compile(schemaFile + "#/$defs/result"); err != nil {
			compileErr = fmt.Errorf("compile result schema: %w", err)
			return
		}

		if containerSchema, err = compiler.Compile(schemaFile + "#/$defs/container"); err != nil {
			compileErr = fmt.Errorf("compile container schema: %w", err)
			return
		}

		if categoriesSchema, err = compiler.Compile(schemaFile + "#/$defs/categories"); err != nil {
			compileErr = fmt.Errorf("compile categories schema: %w", err)
			return
		}
	})

	return compileErr
}

func validate(schema *jsonschema.Schema, kind string, data []byte) error {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%s validation failed: %w", kind, err)
	}

	return nil
}

// ValidateResult validates the content of a test result file.
func ValidateResult(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}
	return validate(resultSchema, "result", data)
}

// ValidateContainer validates the content of a container file.
func ValidateContainer(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}
	return validate(containerSchema, "container", data)
}

// ValidateCategories validates the content of a categories file.
func ValidateCategories(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}
	return validate(categoriesSchema, "categories", data)
}

// FileError is a validation failure of one file.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return e.File + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ValidateDir validates every results, container and categories file in dir
// and returns the number of files checked. Failures are joined into the
// returned error, one *FileError per file.
func ValidateDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read results directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var (
		checked int
		errs    []error
	)

	for _, name := range names {
		var fn func([]byte) error
		switch {
		case strings.HasSuffix(name, writer.ResultSuffix):
			fn = ValidateResult
		case strings.HasSuffix(name, writer.ContainerSuffix):
			fn = ValidateContainer
		case name == writer.CategoriesFileName:
			fn = ValidateCategories
		default:
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name)) //nolint:gosec // G304: name comes from listing the results directory
		if err != nil {
			errs = append(errs, &FileError{File: name, Err: err})
			continue
		}

		checked++
		if err := fn(data); err != nil {
			errs = append(errs, &FileError{File: name, Err: err})
		}
	}

	return checked, errors.Join(errs...)
}
