package riakcache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/unkn0wn-root/riakcache/envelope"
)

var (
	// ErrNotStarted is returned by Get, Set, Drop and Sweep before Start
	// or after Stop.
	ErrNotStarted = errors.New("riakcache: connection not started")

	// ErrInvalidSegment is wrapped by ValidateSegmentName.
	ErrInvalidSegment = errors.New("riakcache: invalid segment name")
)

// Envelope errors, re-exported so callers need not import envelope.
var (
	ErrSerialization = envelope.ErrSerialization
	ErrBadContent    = envelope.ErrBadContent
	ErrBadStructure  = envelope.ErrBadStructure
)

// ValidateSegmentName rejects names the storage key layout cannot carry.
func ValidateSegmentName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty string", ErrInvalidSegment)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: includes null character", ErrInvalidSegment)
	}
	return nil
}

// corruptReason maps a decode error to the reason passed to
// Hooks.CorruptEnvelope.
func corruptReason(err error) string {
	switch {
	case errors.Is(err, envelope.ErrBadStructure):
		return "bad_structure"
	case errors.Is(err, envelope.ErrBadContent):
		return "bad_content"
	default:
		return "decode"
	}
}
