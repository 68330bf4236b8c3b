// Package schema validates persisted records against CUE definitions.
//
// Definitions live in records.cue under the records struct, one entry per
// storage name. Records are closed: unknown fields are rejected. Every field
// is optional because hydration merges a record over the store default.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed records.cue
var recordsCUE string

// ErrUnknownRecord is returned for names without a definition.
var ErrUnknownRecord = errors.New("no schema for record")

// RecordError describes a record that does not satisfy its definition.
type RecordError struct {
	Record  string
	Message string
	Pos     token.Pos
}

func (e *RecordError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Record, e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Record, e.Message)
}

// Validator checks records against the compiled definitions.
//
// Thread-safety: a cue.Context is not safe for concurrent use, so callers
// must not share a Validator across goroutines.
type Validator struct {
	ctx     *cue.Context
	records cue.Value
}

// New compiles the built-in definitions.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(recordsCUE, cue.Filename("records.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &Validator{
		ctx:     ctx,
		records: root.LookupPath(cue.ParsePath("records")),
	}, nil
}

// Names returns the record names that have a definition.
func (v *Validator) Names() []string {
	var names []string
	iter, err := v.records.Fields()
	if err != nil {
		return nil
	}
	for iter.Next() {
		names = append(names, iter.Selector().Unquoted())
	}
	sort.Strings(names)
	return names
}

// Has reports whether name has a definition.
func (v *Validator) Has(name string) bool {
	return v.definition(name).Exists()
}

// Validate checks that data, a JSON document, satisfies the definition
// registered for name.
func (v *Validator) Validate(name string, data []byte) error {
	def := v.definition(name)
	if !def.Exists() {
		return fmt.Errorf("%w: %q", ErrUnknownRecord, name)
	}

	expr, err := cuejson.Extract(name+".json", data)
	if err != nil {
		return &RecordError{Record: name, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	value := v.ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return formatCUEError(name, err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(name, err)
	}
	return nil
}

func (v *Validator) definition(name string) cue.Value {
	return v.records.LookupPath(cue.MakePath(cue.Str(name)))
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(record string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &RecordError{Record: record, Message: err.Error()}
	}

	first := errs[0]
	rerr := &RecordError{Record: record, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		rerr.Pos = positions[0]
	}
	return rerr
}
