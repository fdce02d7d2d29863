package riakcache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// SweepDeleteFailed runs on sweep worker goroutines and may be called
// concurrently.
type Hooks interface {
	// A sweep iteration consumed the whole index stream.
	// expired is the number of keys the query returned; failed is how many
	// of their deletes errored.
	SweepCompleted(partition string, expired, failed int, took time.Duration)

	// The index stream failed; the iteration was abandoned.
	SweepAborted(partition string, err error)

	// Deleting one expired key failed. It is not retried.
	SweepDeleteFailed(storageKey string, err error)

	// Get found content that does not decode.
	// reason ∈ {"bad_content", "bad_structure", "decode"}
	CorruptEnvelope(storageKey, reason string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SweepCompleted(string, int, int, time.Duration) {}
func (NopHooks) SweepAborted(string, error)                     {}
func (NopHooks) SweepDeleteFailed(string, error)                {}
func (NopHooks) CorruptEnvelope(string, string)                 {}
