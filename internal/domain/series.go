package domain

// Response is the decoded body of one InfluxQL query in JSON format.
//
//	{"results":[{"statement_id":0,"series":[{"name":"cpu","columns":[...],"values":[[...]]}]}]}
type Response struct {
	Results []StatementResult `json:"results"`
	Err     string            `json:"error,omitempty"`
}

// StatementResult holds the series produced by one statement.
type StatementResult struct {
	StatementID int      `json:"statement_id"`
	Series      []Series `json:"series,omitempty"`
	Err         string   `json:"error,omitempty"`
}

// Series is one columnar batch: a shared column-name list and value-rows
// aligned positionally with it.
type Series struct {
	Name    string            `json:"name,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
	Columns []Value           `json:"columns"`
	Values  [][]Value         `json:"values,omitempty"`
}

// FirstError returns the first error reported by the response or any of
// its statements, or "" when there is none.
func (r *Response) FirstError() string {
	if r.Err != "" {
		return r.Err
	}
	for _, res := range r.Results {
		if res.Err != "" {
			return res.Err
		}
	}
	return ""
}
