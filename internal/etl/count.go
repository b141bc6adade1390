package etl

import "fmt"

// ParseCount extracts the row count from a SELECT COUNT(*) response.
//
// InfluxDB answers with one total per field, e.g. columns
// ["time","count_a","count_b"] and a single row ["1970-01-01T00:00:00Z",10,8].
// Fields with sparse values report lower totals, so the largest one is the
// row count. The time column and non-numeric cells are ignored.
func ParseCount(raw []byte) (int64, error) {
	resp, err := decodeResponse(raw)
	if err != nil {
		return 0, err
	}
	if msg := resp.FirstError(); msg != "" {
		return 0, responseFailure("SELECT COUNT(*)", msg)
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Series) == 0 ||
		len(resp.Results[0].Series[0].Values) == 0 {
		return 0, fmt.Errorf("%w: no count series in response", ErrCountUnavailable)
	}

	series := resp.Results[0].Series[0]
	var (
		best  int64
		found bool
	)
	for i, v := range series.Values[0] {
		if i < len(series.Columns) {
			if col, _ := series.Columns[i].AsString(); col == "time" {
				continue
			}
		}
		n, ok := v.AsInt64()
		if !ok || n < 0 {
			continue
		}
		if !found || n > best {
			best = n
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: no per-field totals in response", ErrCountUnavailable)
	}
	return best, nil
}
