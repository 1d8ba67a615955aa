package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"adeptly/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAuditor struct {
	runs atomic.Int32
}

func (a *countingAuditor) Run(ctx context.Context) (*services.AuditReport, error) {
	a.runs.Add(1)
	return &services.AuditReport{}, nil
}

func TestSchedulerRunsAudit(t *testing.T) {
	auditor := &countingAuditor{}
	s := New(auditor, 100*time.Millisecond, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return auditor.runs.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond)
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&countingAuditor{}, 0, nil)
	assert.Equal(t, time.Hour, s.interval)
}
