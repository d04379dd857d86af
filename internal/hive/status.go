package hive

import (
	"context"
	"fmt"

	"github.com/rzbill/bee/internal/store"
)

// Status is a point-in-time view of the shared records.
type Status struct {
	Writer    string `json:"writer"`
	HasWriter bool   `json:"hasWriter"`
	Pending   int64  `json:"pending"`
	Errors    int64  `json:"errors"`
}

// ReadStatus samples the lease owner and both queue lengths. The three reads
// are independent and may straddle concurrent updates.
func ReadStatus(ctx context.Context, s store.Store, writerKey, messagesKey, errorsKey string) (Status, error) {
	var st Status
	owner, ok, err := s.Get(ctx, writerKey)
	if err != nil {
		return st, fmt.Errorf("read lease: %w", err)
	}
	st.Writer, st.HasWriter = owner, ok
	if st.Pending, err = s.LLen(ctx, messagesKey); err != nil {
		return st, fmt.Errorf("read work queue: %w", err)
	}
	if st.Errors, err = s.LLen(ctx, errorsKey); err != nil {
		return st, fmt.Errorf("read error queue: %w", err)
	}
	return st, nil
}
