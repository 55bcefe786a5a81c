package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/model"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeNotFound   = "E002" // Path not found
	ErrCodeReadFailed = "E003" // File read error
	ErrCodeDocument   = "E004" // Document shape or mapping error (details carry the E1xx codes)
	ErrCodeStructural = "E005" // Graph structural error
	ErrCodeDatabase   = "E006" // Store open/read error
	ErrCodeConfig     = "E007" // Run config file error
)

// LoadResult contains a graph document loaded from disk, in every form the
// commands need: the raw bytes (stored with recorded runs), the parsed
// document (fingerprints), and the validated graph (sampling).
type LoadResult struct {
	Path     string
	Raw      []byte
	Document *model.Document
	Graph    *graph.Graph
}

// LoadError represents an error that occurred while loading a graph
// document. Document and structural failures carry per-node details.
type LoadError struct {
	Code    string
	Message string
	Details []model.DocumentError
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadGraph reads a graph document file and decodes it into a validated
// graph.
//
// The three model stages map onto CLI error codes: shape and mapping
// problems come back as ErrCodeDocument with the per-node E1xx details,
// graph-level problems as ErrCodeStructural. Path problems come back as
// ErrCodeNotFound or ErrCodeReadFailed.
func LoadGraph(path string) (*LoadResult, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph document not found: %s", path)}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	if errs := model.ValidateBytes(raw); len(errs) > 0 {
		return nil, &LoadError{
			Code:    ErrCodeDocument,
			Message: fmt.Sprintf("document has %d error(s)", len(errs)),
			Details: errs,
		}
	}

	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeDocument, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	g, err := doc.Graph()
	if err != nil {
		return nil, classifyGraphError(err)
	}

	return &LoadResult{Path: path, Raw: raw, Document: &doc, Graph: g}, nil
}

// classifyGraphError maps decode and structural errors onto LoadErrors.
func classifyGraphError(err error) *LoadError {
	var de *model.DecodeError
	if errors.As(err, &de) {
		return &LoadError{
			Code:    ErrCodeDocument,
			Message: fmt.Sprintf("document has %d error(s)", len(de.Errors)),
			Details: de.Errors,
		}
	}

	var se *graph.StructuralError
	if errors.As(err, &se) {
		detail := model.DocumentError{
			Field:   fmt.Sprintf("nodes[%d]", se.Node),
			Message: se.Message,
			Code:    string(se.Code),
		}
		if se.Node < 0 {
			detail.Field = "nodes"
		}
		return &LoadError{
			Code:    ErrCodeStructural,
			Message: se.Error(),
			Details: []model.DocumentError{detail},
		}
	}

	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}
