package types

// SessionMeta identifies one harness session (one test run on one host).
// Every log line and published notification carries these fields.
type SessionMeta struct {
	// SessionID is a unique identifier for the session.
	SessionID string
	// RunName is the optional test-run name the session collects for.
	RunName *string
}
