package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"go.uber.org/multierr"

	"github.com/roach88/relsync/internal/compiler"
	"github.com/roach88/relsync/internal/ir"
)

// LoadResult contains the relations loaded from a directory.
type LoadResult struct {
	Relations []ir.RelationSpec
	SpecHash  string
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRelations loads every .cue file directly under dir as one CUE
// instance and compiles its relation declarations.
//
// A nil result means the directory itself could not be loaded. A non-nil
// result with errors means the declarations failed to compile or validate;
// every error is returned.
func LoadRelations(dir string) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("relations directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing relations directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances(files, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(files),
	}

	specs, err := compiler.CompileRelations(value)
	if err != nil {
		var errs []error
		for _, e := range multierr.Errors(err) {
			errs = append(errs, convertCompileError(e))
		}
		return result, errs
	}

	result.Relations = specs
	result.SpecHash, err = ir.SpecHash(specs)
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
	}
	return result, nil
}

// FindCUEFiles returns the .cue files directly under dir, by name, relative
// to dir.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, "./"+e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with a code.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := MapFieldToErrorCode(compileErr.Field)
		if strings.HasSuffix(compileErr.Message, " is required") {
			code = ErrCodeMissingField
		}
		return &LoadError{
			Code:    code,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return &LoadError{
			Code:    verr.Code,
			Message: fmt.Sprintf("%s: %s", verr.Field, verr.Message),
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Declaration shape errors
	ErrCodeSchema       = "E101" // Value rejected by the declaration schema
	ErrCodeNoRelations  = "E102" // No relation declared
	ErrCodeUnknownSide  = "E103" // Relation names an undeclared side
	ErrCodeUnusedSide   = "E104" // Side not used by any relation
	ErrCodeMissingField = "E105" // Required field absent
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Validation errors (E120-E126) carry their own codes.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeSchema
	case field == "relation":
		return ErrCodeNoRelations
	case field == "source" || field == "target":
		return ErrCodeUnknownSide
	case strings.HasPrefix(field, "relatable."):
		return ErrCodeUnusedSide
	case field == "opposite" || field == "container":
		return ErrCodeMissingField
	default:
		return ErrCodeGeneric
	}
}
