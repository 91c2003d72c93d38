package localdb

import "time"

// Store serves the wheel's library, suggestion, event, state and history
// lookups from the local database.
type Store struct {
	now func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}
