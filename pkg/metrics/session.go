package metrics

import "time"

// SessionMetrics provides observability for session operations.
//
// This interface is optional - if not provided to a session, a no-op
// implementation is used.
type SessionMetrics interface {
	// RecordOperation records a completed session operation.
	//
	// Parameters:
	//   - op: Operation name (e.g., "write", "copy_to_remote", "remove_tree")
	//   - duration: Time taken by the operation
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(op string, duration time.Duration, err error)

	// RecordBytesTransferred records bytes moved to or from the remote.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: Number of bytes transferred
	RecordBytesTransferred(direction string, bytes int64)

	// RecordShortWrite counts a write that transferred fewer bytes than
	// requested and was retried.
	RecordShortWrite()

	// RecordBufferGrow records the new capacity of a directory name buffer
	// after an ERANGE retry.
	RecordBufferGrow(size int)
}

// noopSessionMetrics discards everything.
type noopSessionMetrics struct{}

// NewNoopSessionMetrics returns a SessionMetrics that records nothing.
func NewNoopSessionMetrics() SessionMetrics { return noopSessionMetrics{} }

func (noopSessionMetrics) RecordOperation(string, time.Duration, error) {}
func (noopSessionMetrics) RecordBytesTransferred(string, int64)         {}
func (noopSessionMetrics) RecordShortWrite()                            {}
func (noopSessionMetrics) RecordBufferGrow(int)                         {}
