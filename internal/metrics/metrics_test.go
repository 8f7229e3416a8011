// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordClassificationLabels(t *testing.T) {
	before := counterValue(t, ClassifierDecisionsTotal.WithLabelValues("retryable"))
	RecordClassification(true)
	RecordClassification(false)
	after := counterValue(t, ClassifierDecisionsTotal.WithLabelValues("retryable"))
	assert.Equal(t, before+1, after)

	fatal := counterValue(t, ClassifierDecisionsTotal.WithLabelValues("fatal"))
	assert.GreaterOrEqual(t, fatal, 1.0)
}

func TestRecordPollResults(t *testing.T) {
	before := counterValue(t, StatusPollsTotal.WithLabelValues("ok"))
	RecordPoll("ok")
	RecordPoll("error")
	after := counterValue(t, StatusPollsTotal.WithLabelValues("ok"))
	assert.Equal(t, before+1, after)
}
