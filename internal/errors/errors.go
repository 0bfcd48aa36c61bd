// Package errors provides error handling for endpointgen.
//
// It re-exports github.com/cockroachdb/errors for wrapping, hints and
// inspection, and defines the generation error taxonomy shared by the naming
// resolver, the type interpreter chain, the metadata builder and the rule
// engine.
//
// Usage:
//
//	// Wrap with context
//	if err := build(); err != nil {
//	    return errors.Wrap(err, "build metadata")
//	}
//
//	// Classify
//	if errors.IsNamingConflict(err) {
//	    // report both conflicting paths
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf
