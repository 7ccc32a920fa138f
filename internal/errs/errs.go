// Package errs defines the failure kinds shared by the mirror packages.
//
// Every failure surfaced by the engine is an *Error carrying its Kind, so
// callers can branch with errors.Is against the sentinels below while the
// underlying cause stays reachable through Unwrap.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAlreadyExists
	KindIO
	KindRemoteQuery
	KindTransfer
	KindPathDecode
	KindInvalidName
	KindNameCollision
	KindPathMismatch
)

var (
	// ErrAlreadyExists indicates a local directory was created on an existing path.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIO indicates a local filesystem create/delete was denied or interrupted.
	ErrIO = errors.New("filesystem failure")

	// ErrRemoteQuery indicates the controller could not enumerate folders or leaves.
	ErrRemoteQuery = errors.New("remote query failed")

	// ErrTransfer indicates a leaf could not be exported or imported.
	ErrTransfer = errors.New("transfer failed")

	// ErrPathDecode indicates a local file cannot be mapped back to a remote path.
	ErrPathDecode = errors.New("path decode failed")

	// ErrInvalidName indicates a name that cannot be a single path segment.
	ErrInvalidName = errors.New("invalid name")

	// ErrNameCollision indicates two siblings map to the same local name.
	ErrNameCollision = errors.New("name collision")

	// ErrPathMismatch indicates a leaf whose remote path disagrees with its
	// folder and display name, so importing its file would not rebuild it.
	ErrPathMismatch = errors.New("path mismatch")
)

var sentinels = map[Kind]error{
	KindAlreadyExists: ErrAlreadyExists,
	KindIO:            ErrIO,
	KindRemoteQuery:   ErrRemoteQuery,
	KindTransfer:      ErrTransfer,
	KindPathDecode:    ErrPathDecode,
	KindInvalidName:   ErrInvalidName,
	KindNameCollision: ErrNameCollision,
	KindPathMismatch:  ErrPathMismatch,
}

func (k Kind) String() string {
	if s, ok := sentinels[k]; ok {
		return s.Error()
	}
	return "unknown failure"
}

// Error wraps a failure with the operation and path it concerns.
type Error struct {
	Kind Kind
	Op   string // e.g. "clear", "list folders", "export"
	Path string // local or remote path, depending on Op
	Err  error  // underlying cause, may be nil
}

// E builds an *Error.
func E(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %q", e.Op, e.Path)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", msg, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", msg, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
