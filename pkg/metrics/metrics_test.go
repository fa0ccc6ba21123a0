package metrics

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOp(t *testing.T) {
	before := testutil.ToFloat64(RepoOpTotal.WithLabelValues("get", "absent"))
	ObserveOp("get", "absent", time.Now())
	after := testutil.ToFloat64(RepoOpTotal.WithLabelValues("get", "absent"))
	assert.Equal(t, before+1, after)
}

func TestWritePrometheus(t *testing.T) {
	ObserveOp("save", "ok", time.Now())
	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	assert.Contains(t, buf.String(), "docrepo_op_total")
	assert.Contains(t, buf.String(), "docrepo_op_duration_seconds")
}
