// Package diag holds the diagnostics that travel alongside the transformation
// pipeline: per-node serialization problems collected while inverting, and
// validation messages attached to nodes while transforming.
package diag

import (
	"fmt"
	"sort"
)

// Level is the severity of a serialization problem.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Code identifies what went wrong while serializing a node.
type Code string

const (
	// CodeTransformation marks a node that could not be inverted at all and
	// was left out of the output.
	CodeTransformation Code = "TEITransformationError"
	// CodeUnknownVolltext marks an inline node whose semantics could not be
	// preserved; a generic span was written instead.
	CodeUnknownVolltext Code = "unknownVolltextElement"
)

// SerializationError is a recoverable problem found while inverting a tree.
// It is reported next to the result instead of aborting the conversion.
type SerializationError struct {
	Level  Level  `json:"level"`
	Code   Code   `json:"errorCode"`
	Tag    string `json:"tag,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (e SerializationError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s %s <%s>: %s", e.Level, e.Code, e.Tag, e.Detail)
	}
	return fmt.Sprintf("%s %s: %s", e.Level, e.Code, e.Detail)
}

// Transformation builds an error-level TEITransformationError.
func Transformation(tag string, err error) SerializationError {
	return SerializationError{
		Level:  LevelError,
		Code:   CodeTransformation,
		Tag:    tag,
		Detail: err.Error(),
	}
}

// Errors is the side list returned by every invert call.
type Errors []SerializationError

// UserFacing drops info-level entries, which are never shown to users.
func (errs Errors) UserFacing() Errors {
	out := make(Errors, 0, len(errs))
	for _, e := range errs {
		if e.Level == LevelInfo {
			continue
		}
		out = append(out, e)
	}
	return out
}

// HasErrors reports whether any entry is error-level.
func (errs Errors) HasErrors() bool {
	for _, e := range errs {
		if e.Level == LevelError {
			return true
		}
	}
	return false
}

// Diagnostic is one localized message as delivered by the validation service.
type Diagnostic struct {
	LanguageCode string `json:"languageCode"`
	Message      string `json:"message"`
}

// DetailError addresses a validation result to an element by xpath.
type DetailError struct {
	XPath       string       `json:"xpath"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Message folds the diagnostics of a detail error into one
// DiagnosticMessage keyed by normalized language code.
func (d DetailError) Message() DiagnosticMessage {
	m := make(DiagnosticMessage, len(d.Diagnostics))
	for _, dg := range d.Diagnostics {
		m[NormalizeLanguage(dg.LanguageCode)] = dg.Message
	}
	return m
}

// DiagnosticMessage maps a language code to human-readable text.
type DiagnosticMessage map[string]string

// Languages returns the language codes in sorted order.
func (m DiagnosticMessage) Languages() []string {
	langs := make([]string, 0, len(m))
	for k := range m {
		langs = append(langs, k)
	}
	sort.Strings(langs)
	return langs
}

// Clone returns an independent copy.
func (m DiagnosticMessage) Clone() DiagnosticMessage {
	if m == nil {
		return nil
	}
	out := make(DiagnosticMessage, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CloneMessages copies a list of messages.
func CloneMessages(in []DiagnosticMessage) []DiagnosticMessage {
	if in == nil {
		return nil
	}
	out := make([]DiagnosticMessage, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
