package indexer

import (
	"errors"
	"fmt"
)

// ErrUnknownJob is returned when a requested job is not registered.
var ErrUnknownJob = errors.New("unknown job")

// AnomalyError reports source data that breaks an invariant the indexers
// rely on, such as a live term without a primary ID.
type AnomalyError struct {
	Entity string
	Key    int64
	Reason string
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("data anomaly: %s %d: %s", e.Entity, e.Key, e.Reason)
}

// IsAnomaly reports whether err carries an AnomalyError.
func IsAnomaly(err error) bool {
	var a *AnomalyError
	return errors.As(err, &a)
}
