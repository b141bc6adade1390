package etl

import "influxjson/internal/domain"

// Reshape converts one columnar Series into one Record per value-row.
//
// Columns are zipped positionally against each row. A column name that is
// not a string is skipped for that position. Values pass through untouched;
// a row shorter than the column list gets null for the missing cells.
func Reshape(s domain.Series) []domain.Record {
	if len(s.Values) == 0 {
		return nil
	}

	records := make([]domain.Record, 0, len(s.Values))
	for _, row := range s.Values {
		rec := domain.NewRecord(len(s.Columns))
		for i, col := range s.Columns {
			name, ok := col.AsString()
			if !ok {
				continue
			}
			v := domain.Null()
			if i < len(row) {
				v = row[i]
			}
			rec.Set(name, v)
		}
		records = append(records, rec)
	}
	return records
}
