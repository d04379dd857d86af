package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSetLeaderTracksRole(t *testing.T) {
	m := New()
	m.SetLeader(true)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Leader))
	m.SetLeader(false)
	require.Equal(t, 0.0, testutil.ToFloat64(m.Leader))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RoleChanges.WithLabelValues("writer")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RoleChanges.WithLabelValues("reader")))
}

func TestStorageHook(t *testing.T) {
	m := New()
	m.ObserveRead(time.Millisecond, 10)
	m.ObserveRead(time.Millisecond, 5)
	m.ObserveBatchCommit(2*time.Millisecond, 2, 64)
	require.Equal(t, 15.0, testutil.ToFloat64(m.StoreReadBytes))
	require.Equal(t, 1, testutil.CollectAndCount(m.StoreCommits))
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Produced.Add(3)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "bee_messages_produced_total 3"))
}
