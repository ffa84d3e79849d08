package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRequestCountsAndObserves(t *testing.T) {
	before := testutil.ToFloat64(RequestsTotal.WithLabelValues("paperwork-service", "GET /test", "200"))

	RecordRequest("paperwork-service", "GET /test", "200", 15*time.Millisecond)

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("paperwork-service", "GET /test", "200"))
	assert.Equal(t, before+1, after)
}
