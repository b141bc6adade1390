package influx

import (
	"fmt"
	"strings"
)

// ShowMeasurements lists every measurement in the database.
const ShowMeasurements = "SHOW MEASUREMENTS"

// EscapeIdentifier escapes double quotes so name can be embedded in a
// double-quoted identifier. It does not defend against injection.
func EscapeIdentifier(name string) string {
	return strings.ReplaceAll(name, `"`, `\"`)
}

// CountQuery counts the rows of a measurement, one total per field.
func CountQuery(measurement string) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, EscapeIdentifier(measurement))
}

// SelectQuery reads a measurement starting at offset. A positive limit
// bounds the page; zero leaves the page unbounded.
func SelectQuery(measurement string, offset, limit int) string {
	q := fmt.Sprintf(`SELECT * FROM "%s"`, EscapeIdentifier(measurement))
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q + fmt.Sprintf(" OFFSET %d", offset)
}
