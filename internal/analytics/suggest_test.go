package analytics_test

import (
	"testing"

	"github.com/geocoder89/sheetlens/internal/analytics"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		want    analytics.Suggestion
	}{
		{
			name:    "two_or_more_columns",
			columns: []string{"Month", "Revenue", "Costs"},
			want:    analytics.Suggestion{ChartType: "Bar Chart", XAxis: "Month", YAxis: "Revenue"},
		},
		{
			name:    "single_column",
			columns: []string{"Month"},
			want:    analytics.Suggestion{ChartType: "Bar Chart", XAxis: "Month", YAxis: ""},
		},
		{
			name:    "no_columns",
			columns: nil,
			want:    analytics.Suggestion{ChartType: "Bar Chart"},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got := analytics.Suggest(tt.columns)

			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
