package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReport_LogsDeltasEveryInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w, svc := newService(t)
	sys := NewReportSystem(svc, zap.New(core), 2*time.Second)
	require.True(t, sys.Enabled())

	proto := spawnPair(w)
	c, err := svc.Request(proto)
	require.NoError(t, err)
	require.NoError(t, svc.Release(c))

	sys.Update(time.Second)
	assert.Zero(t, logs.Len())
	sys.Update(time.Second)
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 1, fields["requests"])
	assert.EqualValues(t, 2, fields["misses"])

	sys.Update(2 * time.Second)
	require.Equal(t, 2, logs.Len())
	assert.EqualValues(t, 0, logs.All()[1].ContextMap()["requests"])

	assert.False(t, NewReportSystem(svc, zap.NewNop(), 0).Enabled())
}
