package output

import (
	"fmt"
)

// Formatters bundles the statistics and performance formatters of one output format.
type Formatters struct {
	Statistics  StatisticsFormatter
	Performance PerformanceFormatter
}

var formats = map[string]Formatters{
	"json": {Statistics: JsonStatisticsFormatter, Performance: JsonPerformanceFormatter},
	"csv":  {Statistics: CsvStatisticsFormatter, Performance: CsvPerformanceFormatter},
}

// ByName returns the formatters of the format "json" or "csv".
func ByName(name string) (Formatters, error) {
	f, ok := formats[name]
	if !ok {
		return Formatters{}, fmt.Errorf("unknown output format %s", name)
	}
	return f, nil
}
