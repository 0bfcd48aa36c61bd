package errors

import (
	"fmt"
	"strings"
)

// Code categorizes generation failures.
type Code string

const (
	// NamingConflict: two resources or types resolve to the same identifier.
	NamingConflict Code = "NamingConflict"
	// UnresolvedType: a referenced declaration is missing or a union branch
	// cannot be resolved.
	UnresolvedType Code = "UnresolvedType"
	// RuleNotApplicable is a control signal, never surfaced to users.
	RuleNotApplicable Code = "RuleNotApplicable"
	// RuleProcessingFailure: a rule handles the shape but the data is invalid.
	RuleProcessingFailure Code = "RuleProcessingFailure"
	// UnsupportedSpecFeature: no interpreter handles the construct.
	UnsupportedSpecFeature Code = "UnsupportedSpecFeature"
)

// ErrRuleNotApplicable is returned by a rule that declines an entry.
var ErrRuleNotApplicable = &GenError{Code: RuleNotApplicable, Message: "rule not applicable"}

// GenError is a structured generation error. Only the fields relevant to the
// code are populated.
type GenError struct {
	Code    Code
	Message string
	// Path is the resource path, optionally followed by the action verb
	// (e.g. "/pets/{id} GET").
	Path string
	// TypeName is the canonical type name involved.
	TypeName string
	// Rule is the name of the rule that failed.
	Rule string
	// Chain is the type reference chain leading to an unresolved type.
	Chain []string
	// Conflicts lists both sources of a naming conflict.
	Conflicts []string
	Cause     error
}

func (e *GenError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, " (path %s)", e.Path)
	}
	if e.TypeName != "" {
		fmt.Fprintf(&b, " (type %s)", e.TypeName)
	}
	if e.Rule != "" {
		fmt.Fprintf(&b, " (rule %s)", e.Rule)
	}
	if len(e.Chain) > 0 {
		fmt.Fprintf(&b, " (via %s)", strings.Join(e.Chain, " -> "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *GenError) Unwrap() error { return e.Cause }

// Is matches any GenError with the same code, so sentinels like
// ErrRuleNotApplicable work with errors.Is.
func (e *GenError) Is(target error) bool {
	t, ok := target.(*GenError)
	return ok && t.Code == e.Code
}

// NewNamingConflict reports two sources resolving to the same identifier.
func NewNamingConflict(identifier, first, second string) error {
	err := &GenError{
		Code:      NamingConflict,
		Message:   fmt.Sprintf("identifier %q is claimed by both %q and %q", identifier, first, second),
		TypeName:  identifier,
		Conflicts: []string{first, second},
	}
	return WithHint(err, "increase resourceDepthInClassNames or rename one of the conflicting declarations")
}

// NewUnresolvedType reports a type that cannot be resolved. chain lists the
// declarations traversed before reaching name.
func NewUnresolvedType(name string, chain []string, cause error) error {
	return &GenError{
		Code:     UnresolvedType,
		Message:  fmt.Sprintf("cannot resolve type %q", name),
		TypeName: name,
		Chain:    append([]string(nil), chain...),
		Cause:    cause,
	}
}

// NewUnsupported reports a construct the interpreter chain has no handler for.
func NewUnsupported(construct, typeName string) error {
	return &GenError{
		Code:     UnsupportedSpecFeature,
		Message:  fmt.Sprintf("unsupported construct: %s", construct),
		TypeName: typeName,
	}
}

// NewRuleFailure reports invalid metadata detected by a rule.
func NewRuleFailure(rule, path, msg string) error {
	return &GenError{
		Code:    RuleProcessingFailure,
		Message: msg,
		Path:    path,
		Rule:    rule,
	}
}

// CodeOf returns the code of the first GenError in err's chain, or "".
func CodeOf(err error) Code {
	var ge *GenError
	if As(err, &ge) {
		return ge.Code
	}
	return ""
}

func IsNamingConflict(err error) bool        { return CodeOf(err) == NamingConflict }
func IsUnresolvedType(err error) bool        { return CodeOf(err) == UnresolvedType }
func IsRuleNotApplicable(err error) bool     { return CodeOf(err) == RuleNotApplicable }
func IsRuleProcessingFailure(err error) bool { return CodeOf(err) == RuleProcessingFailure }
func IsUnsupported(err error) bool           { return CodeOf(err) == UnsupportedSpecFeature }

// IsFatal reports whether err must abort the whole run rather than a single
// resource subtree.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case RuleNotApplicable, RuleProcessingFailure:
		return false
	}
	return err != nil
}

// Aggregate collects several failures reported in one pass.
type Aggregate struct {
	Errors []error
}

func (a *Aggregate) Error() string {
	msgs := make([]string, 0, len(a.Errors))
	for _, err := range a.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d generation failure(s):\n- %s", len(a.Errors), strings.Join(msgs, "\n- "))
}

// Unwrap exposes the collected errors to errors.Is/As.
func (a *Aggregate) Unwrap() []error { return a.Errors }
