package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRequestReusesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	reqCtx := StartRequest(ctx, nil, "attach_tag")
	assert.Equal(t, "req-1", reqCtx.RequestID)
	assert.Equal(t, "attach_tag", reqCtx.Operation)

	reqCtx = StartRequest(context.Background(), nil, "attach_tag")
	assert.Len(t, reqCtx.RequestID, 36)
}

func TestRequestContextLogsBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	reqCtx := NewRequestContextWithID(logger, "req-2", "delete_tag")

	reqCtx.Warn("tag operation rejected", errors.New("root tag cannot be deleted"), slog.String(LogFieldErrorCode, "FAILED_PRECONDITION"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "req-2", entry[LogFieldRequestID])
	assert.Equal(t, "delete_tag", entry[LogFieldOperation])
	assert.Equal(t, "FAILED_PRECONDITION", entry[LogFieldErrorCode])
	assert.Equal(t, "root tag cannot be deleted", entry["error"])
}

func TestRecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.RecordOperation("create_tag", ResultOK, 0)
	metrics.RecordOperation("create_tag", ResultOK, 0)
	metrics.RecordOperation("create_tag", ResultRejected, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("create_tag", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OperationsTotal.WithLabelValues("create_tag", ResultRejected)))
}
