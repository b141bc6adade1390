package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"influxjson/internal/domain"
)

func TestValue_UnmarshalScalars(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind domain.ValueKind
		out  string
	}{
		{"null", `null`, domain.KindNull, "null"},
		{"true", `true`, domain.KindBool, "true"},
		{"false", `false`, domain.KindBool, "false"},
		{"int", `42`, domain.KindNumber, "42"},
		{"nanosecond timestamp", `1700000000123456789`, domain.KindNumber, "1700000000123456789"},
		{"float", `3.25`, domain.KindNumber, "3.25"},
		{"string", `"2024-01-01T00:00:00Z"`, domain.KindString, "2024-01-01T00:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v domain.Value
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.out, v.String())

			back, err := json.Marshal(v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.in, string(back))
		})
	}
}

func TestValue_RejectsNonScalars(t *testing.T) {
	var v domain.Value
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestValue_AsInt64(t *testing.T) {
	n, ok := domain.Number("10").AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(10), n)

	n, ok = domain.Number("10.0").AsInt64()
	require.True(t, ok)
	assert.Equal(t, int64(10), n)

	_, ok = domain.Number("10.5").AsInt64()
	assert.False(t, ok)

	_, ok = domain.String("10").AsInt64()
	assert.False(t, ok)
}

func TestRecord_MarshalKeepsInsertionOrder(t *testing.T) {
	r := domain.NewRecord(3)
	r.Set("time", domain.String("2024-01-01T00:00:00Z"))
	r.Set("b", domain.Int(2))
	r.Set("a", domain.Null())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"time":"2024-01-01T00:00:00Z","b":2,"a":null}`, string(out))
}

func TestRecord_SetExistingKeyKeepsPosition(t *testing.T) {
	r := domain.NewRecord(2)
	r.Set("a", domain.Int(1))
	r.Set("b", domain.Int(2))
	r.Set("a", domain.Int(3))

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "3", v.String())
	assert.Equal(t, 2, r.Len())
}

func TestRecord_UnmarshalPreservesOrder(t *testing.T) {
	var r domain.Record
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"y":"x","w":true}`), &r))
	assert.Equal(t, []string{"z", "y", "w"}, r.Keys())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"y":"x","w":true}`, string(out))
}

func TestRecord_IndentedArray(t *testing.T) {
	r := domain.NewRecord(2)
	r.Set("a", domain.Int(1))
	r.Set("b", domain.String("x"))

	out, err := json.MarshalIndent([]domain.Record{r}, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"a\": 1,\n    \"b\": \"x\"\n  }\n]", string(out))
}

func TestExportRun_Summarize(t *testing.T) {
	results := []domain.MeasurementResult{
		{Measurement: "a", Status: domain.StatusComplete, RowsWritten: 10},
		{Measurement: "b", Status: domain.StatusPartial, RowsWritten: 4},
		{Measurement: "c", Status: domain.StatusSkipped},
	}

	var run domain.ExportRun
	run.Summarize(results, nil, false)
	assert.Equal(t, domain.RunDegraded, run.Status)
	assert.Equal(t, 3, run.MeasurementsTotal)
	assert.Equal(t, 1, run.MeasurementsComplete)
	assert.Equal(t, 14, run.RowsWritten)

	var ok domain.ExportRun
	ok.Summarize(results[:1], nil, false)
	assert.Equal(t, domain.RunSuccess, ok.Status)

	var cancelled domain.ExportRun
	cancelled.Summarize(results, nil, true)
	assert.Equal(t, domain.RunCancelled, cancelled.Status)
}
