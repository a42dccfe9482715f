package feedsync

import (
	"fmt"

	"github.com/google/uuid"
)

// SyncError reports a run that failed before any house was touched.
type SyncError struct {
	RunID uuid.UUID
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync run %s: fetching feed: %v", e.RunID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// HouseError is a failure merging one group of events. It does not stop
// the rest of the run.
type HouseError struct {
	Key     string `json:"key"`
	HouseID int64  `json:"houseId,omitempty"`
	Message string `json:"error"`
	err     error
}

func newHouseError(key string, houseID int64, err error) HouseError {
	return HouseError{Key: key, HouseID: houseID, Message: err.Error(), err: err}
}

func (e HouseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

func (e HouseError) Unwrap() error {
	return e.err
}
