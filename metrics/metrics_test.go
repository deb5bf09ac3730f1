package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"nostrbird.lol/context"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(StreamRecords.WithLabelValues("heartbeat"))
	StreamRecords.WithLabelValues("heartbeat").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(StreamRecords.WithLabelValues("heartbeat")))
}

func TestServeDisabled(t *testing.T) {
	assert.NoError(t, Serve(context.Bg(), ""))
}
