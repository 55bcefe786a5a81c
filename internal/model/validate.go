package model

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

// Document error codes (E100-E199)
const (
	// Shape errors from schema validation (E100)
	ErrDocumentShape = "E100" // document rejected by the schema

	// Node mapping errors (E101-E109)
	ErrUnknownOperatorName = "E101" // operator name not in the catalog
	ErrUnknownTypeName     = "E102" // type name not in the catalog
	ErrMissingValue        = "E103" // constant without a value
	ErrMissingInNodes      = "E104" // operator node without in_nodes
	ErrMissingQueryField   = "E105" // query without in_node or query_index
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
)

// documentSchema compiles the embedded schema on first use. The cue
// context must outlive every value built from it, so one is kept for
// the life of the process.
func documentSchema() cue.Value {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		compiled := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
		schemaValue = compiled.LookupPath(cue.ParsePath("#Document"))
	})
	return schemaValue
}

// DocumentError represents a single problem found in a document.
type DocumentError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e DocumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// DecodeError aggregates every problem found in one document, so a
// caller sees the full list in a single pass rather than one error per
// fix attempt.
type DecodeError struct {
	Errors []DocumentError
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, de := range e.Errors {
		msgs[i] = de.Error()
	}
	return fmt.Sprintf("%d document errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// IsDecodeError returns true if the error carries document problems.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ValidateBytes checks raw document JSON against the embedded schema.
// It returns every shape violation found, not just the first.
func ValidateBytes(data []byte) []DocumentError {
	sch := documentSchema()

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		// E100: not even parseable JSON
		return []DocumentError{{Code: ErrDocumentShape, Message: err.Error()}}
	}

	v := sch.Context().BuildExpr(expr)
	if err := v.Err(); err != nil {
		return shapeErrors(err)
	}

	unified := sch.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return shapeErrors(err)
	}
	return nil
}

// shapeErrors flattens a cue error list into document errors, keeping
// the field path each violation was found at.
func shapeErrors(err error) []DocumentError {
	var out []DocumentError
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, DocumentError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrDocumentShape,
		})
	}
	return out
}
