// Package errors defines the typed error values produced by directive
// processing and compilation, plus a collector used by batch compiles to
// gather per-challenge failures without aborting the whole run.
package errors

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"
)

// Kind classifies a compile error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindMalformedInput marks content that a directive could not parse,
	// e.g. invalid JSON under json_minify.
	KindMalformedInput
	// KindMissingDependency marks a directive whose required companion file
	// (challenge metadata, bundle reference) is absent.
	KindMissingDependency
	// KindUnresolvedPlaceholder marks a template token that no supplied
	// value resolved.
	KindUnresolvedPlaceholder
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"
	case KindMissingDependency:
		return "missing dependency"
	case KindUnresolvedPlaceholder:
		return "unresolved placeholder"
	default:
		return "unknown"
	}
}

// Error is a classified compile error tied to a source file.
type Error struct {
	Kind Kind
	Path string // source file the transformation was applied to
	Ref  string // companion file or placeholder token, when relevant
	Err  error  // underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Path, e.Kind)
	if e.Ref != "" {
		msg += ": " + e.Ref
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// MalformedInput reports unparseable content in the file at path.
func MalformedInput(path string, err error) *Error {
	return &Error{Kind: KindMalformedInput, Path: path, Err: err}
}

// MissingDependency reports that the companion file ref, required by a
// directive in the file at path, does not exist.
func MissingDependency(path, ref string) *Error {
	return &Error{Kind: KindMissingDependency, Path: path, Ref: ref}
}

// UnresolvedPlaceholder reports a template token that survived substitution.
func UnresolvedPlaceholder(path, token string) *Error {
	return &Error{Kind: KindUnresolvedPlaceholder, Path: path, Ref: token}
}

// IsKind reports whether any error in err's chain is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ce *Error
	if stderrors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}

// ChallengeError records the failure of one challenge in a batch compile.
type ChallengeError struct {
	Challenge string
	Err       error
	Timestamp time.Time
}

// Error implements the error interface.
func (ce *ChallengeError) Error() string {
	return fmt.Sprintf("challenge %s: %v", ce.Challenge, ce.Err)
}

// Unwrap returns the underlying cause.
func (ce *ChallengeError) Unwrap() error {
	return ce.Err
}

// Collector gathers per-challenge errors during a batch compile so one
// failing challenge does not stop the remaining challenges from compiling.
type Collector struct {
	errors []ChallengeError
	mutex  sync.RWMutex
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{errors: make([]ChallengeError, 0)}
}

// Add records the failure of one challenge.
func (c *Collector) Add(challenge string, err error) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = append(c.errors, ChallengeError{
		Challenge: challenge,
		Err:       err,
		Timestamp: time.Now(),
	})
}

// Errors returns a copy of all collected errors.
func (c *Collector) Errors() []ChallengeError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]ChallengeError, len(c.errors))
	copy(result, c.errors)
	return result
}

// HasErrors reports whether anything failed.
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.errors) > 0
}

// Count returns the number of collected errors.
func (c *Collector) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.errors)
}
