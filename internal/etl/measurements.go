package etl

import (
	"bufio"
	"bytes"
	"strings"

	"influxjson/internal/influx"
)

// listingHeaderLines is the size of the tabular header:
//
//	name: measurements
//	name
//	----
const listingHeaderLines = 2

const listingSeparator = "----"

// ParseMeasurements turns a raw SHOW MEASUREMENTS response into measurement
// names, in source order and without deduplication.
//
// Both the CLI's tabular text and the JSON response are accepted.
func ParseMeasurements(raw []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return parseMeasurementsJSON(trimmed)
	}
	return parseMeasurementsText(raw), nil
}

func parseMeasurementsText(raw []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if line <= listingHeaderLines {
			continue
		}
		name := strings.TrimSpace(sc.Text())
		if name == "" || name == listingSeparator {
			continue
		}
		names = append(names, name)
	}
	return names
}

func parseMeasurementsJSON(raw []byte) ([]string, error) {
	resp, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	if msg := resp.FirstError(); msg != "" {
		return nil, responseFailure(influx.ShowMeasurements, msg)
	}

	var names []string
	for _, res := range resp.Results {
		for _, s := range res.Series {
			for _, row := range s.Values {
				if len(row) == 0 {
					continue
				}
				name, ok := row[0].AsString()
				if !ok || strings.TrimSpace(name) == "" {
					continue
				}
				names = append(names, strings.TrimSpace(name))
			}
		}
	}
	return names, nil
}
