package bench

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	failed := Result{BatchSize: 4, Batches: 2}
	failed.setError(&TrialError{BatchSize: 4, Trial: 1, Batch: 0, Err: errors.New("device lost")})
	results := []Result{
		{
			BatchSize:      1,
			Batches:        8,
			Images:         8,
			MeanPerImage:   20 * time.Millisecond,
			StdDevPerImage: 1500 * time.Microsecond,
			MeanPerBatch:   20 * time.Millisecond,
		},
		failed,
		{BatchSize: 16},
	}
	buf := bytes.Buffer{}
	require.NoError(t, WriteReport(&buf, results))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, []string{"batch", "size", "batches", "mean/img", "std/img", "mean/batch", "status"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"1", "8", "0.0200", "0.0015", "0.0200", "ok"}, strings.Fields(lines[1]))
	require.Contains(t, lines[2], "error: batch size 4, trial 1, batch 0: device lost")
	require.Equal(t, []string{"16", "0", "-", "-", "-", "no", "batches"}, strings.Fields(lines[3]))
}

func TestWriteJSON(t *testing.T) {
	failed := Result{BatchSize: 2}
	failed.setError(errors.New("boom"))
	results := []Result{
		{BatchSize: 1, Batches: 3, Images: 3, Trials: []TrialRecord{{Trial: 0, Elapsed: time.Second, Batches: 3, Images: 3}}},
		failed,
	}
	buf := bytes.Buffer{}
	require.NoError(t, WriteJSON(&buf, results))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, 1.0, decoded[0]["batchSize"])
	require.NotContains(t, decoded[0], "error")
	require.Equal(t, "boom", decoded[1]["error"])
	trials := decoded[0]["trials"].([]any)
	require.Equal(t, float64(time.Second), trials[0].(map[string]any)["elapsed"])
}
