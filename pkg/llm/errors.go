package llm

import "errors"

var (
	// ErrProviderUnavailable means the requested provider cannot be used,
	// usually because its credential is missing. Fatal to the call, not the process.
	ErrProviderUnavailable = errors.New("llm: provider unavailable")

	// ErrUpstream means the backend call failed after exhausting retries.
	ErrUpstream = errors.New("llm: upstream call failed")
)
