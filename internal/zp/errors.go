package zp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures surfaced by a run.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	UnsupportedFormat
	PasswordProtected
	DecodeFailure
	MergeIOFailure
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedFormat:
		return "UnsupportedFormat"
	case PasswordProtected:
		return "PasswordProtected"
	case DecodeFailure:
		return "DecodeFailure"
	case MergeIOFailure:
		return "MergeIOFailure"
	default:
		return "Unknown"
	}
}

// Sentinel errors, matched with errors.Is against *ExtractionError and *MergeError.
var (
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	ErrPasswordProtected = errors.New("archive is password protected")
	ErrDecodeFailure     = errors.New("archive could not be decoded")
	ErrMergeIO           = errors.New("merge failed")

	// ErrDestinationOverlap is wrapped in a *MergeError when the chosen
	// destination would merge staged entries back into the staging directory.
	ErrDestinationOverlap = errors.New("destination overlaps the staging directory")

	// ErrBusy is returned by Workflow.Start while a run is in progress.
	ErrBusy = errors.New("a run is already in progress")

	// ErrInvalidTransition is returned when an operation is invoked in a state
	// that does not allow it.
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case UnsupportedFormat:
		return ErrUnsupportedFormat
	case PasswordProtected:
		return ErrPasswordProtected
	case DecodeFailure:
		return ErrDecodeFailure
	case MergeIOFailure:
		return ErrMergeIO
	default:
		return nil
	}
}

// ExtractionError describes why an archive could not be extracted.
// Detail carries the decoder's diagnostic output when there is any.
type ExtractionError struct {
	Kind    ErrorKind
	Archive string
	Detail  string
	Err     error
}

func (e *ExtractionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Archive, e.Kind.sentinel())
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if d := strings.TrimSpace(e.Detail); d != "" {
		fmt.Fprintf(&b, ": %s", d)
	}
	return b.String()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// MergeError is a MergeIOFailure: a delete or move that failed while merging
// one tree into another. Entries handled before the failure stay where they are.
type MergeError struct {
	Op   string
	Path string
	Err  error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

func (e *MergeError) Is(target error) bool { return target == ErrMergeIO }

// KindOf reports the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return xe.Kind
	}
	var me *MergeError
	if errors.As(err, &me) {
		return MergeIOFailure
	}
	return KindUnknown
}
