package analytics

// Suggestion is the default chart selection offered alongside fetched
// upload data. It is a fixed rule (first two columns, bar chart), not
// a heuristic.

type Suggestion struct {
	ChartType string `json:"chartType"`
	XAxis     string `json:"xAxis"`
	YAxis     string `json:"yAxis"`
}

func Suggest(columns []string) Suggestion {
	s := Suggestion{ChartType: "Bar Chart"}

	if len(columns) > 0 {
		s.XAxis = columns[0]
	}

	if len(columns) > 1 {
		s.YAxis = columns[1]
	}

	return s
}
