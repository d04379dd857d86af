package hive

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/rzbill/bee/internal/store"
)

// DrainErrors reads the whole error queue, deletes it and returns what it
// read. Messages appended between the read and the delete are lost; the
// report is a diagnostic, not a ledger.
func DrainErrors(ctx context.Context, s store.Store, key string) ([]string, error) {
	msgs, err := s.LRange(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read error queue: %w", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("delete error queue: %w", err)
	}
	if msgs == nil {
		msgs = []string{}
	}
	return msgs, nil
}

// FormatReport renders msgs as a single list, e.g. ['ABCDE', 'X1Y2Z'].
func FormatReport(msgs []string) string {
	quoted := lo.Map(msgs, func(m string, _ int) string {
		return "'" + strings.ReplaceAll(m, "'", `\'`) + "'"
	})
	return "[" + strings.Join(quoted, ", ") + "]"
}
