package contract

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/saworbit/ioprimer/internal/exittest"
	"github.com/saworbit/ioprimer/internal/metrics"
)

func TestRequireHolds(t *testing.T) {
	res := exittest.Catch(t, func() {
		Require(true, "never shown")
	})

	assert.False(t, res.Exited)
	assert.Empty(t, res.Log)
}

func TestRequireViolated(t *testing.T) {
	before := testutil.ToFloat64(metrics.AbortTotal.WithLabelValues(ReasonPrecondition))

	reached := false
	res := exittest.Catch(t, func() {
		Require(false, "buffer must not be empty")
		reached = true
	})

	assert.True(t, res.Exited)
	assert.Equal(t, 1, res.Code)
	assert.False(t, reached, "execution continued after abort")
	assert.Contains(t, res.Log, "buffer must not be empty")
	assert.Contains(t, res.Log, "level=fatal")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AbortTotal.WithLabelValues(ReasonPrecondition)))
}

func TestFailf(t *testing.T) {
	res := exittest.Catch(t, func() {
		Failf(ReasonIO, "write %s: %v", "out.txt", "no space left on device")
	})

	assert.True(t, res.Exited)
	assert.Equal(t, 1, res.Code)
	assert.Contains(t, res.Log, "write out.txt: no space left on device")
	assert.Contains(t, res.Log, "reason=io")
}
