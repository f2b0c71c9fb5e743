package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strconv"
)

// PerformanceFormatter outputs the performance dictionaries of one or more runs, keyed by run name.
type PerformanceFormatter func(map[string]map[string]float64) (string, error)

// JsonPerformanceFormatter outputs results in a JSON format.
func JsonPerformanceFormatter(results map[string]map[string]float64) (string, error) {
	v, err := json.MarshalIndent(results, "", "    ")
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// CsvPerformanceFormatter outputs one row per run. The columns are the union of all metrics; metrics a run does not
// have are left empty.
func CsvPerformanceFormatter(results map[string]map[string]float64) (string, error) {
	runs := make([]string, 0, len(results))
	seen := map[string]bool{}
	var metrics []string
	for run, perf := range results {
		runs = append(runs, run)
		for metric := range perf {
			if !seen[metric] {
				seen[metric] = true
				metrics = append(metrics, metric)
			}
		}
	}
	sort.Strings(runs)
	sort.Strings(metrics)

	b := bytes.NewBufferString("")
	w := csv.NewWriter(b)
	if err := w.Write(append([]string{"Run"}, metrics...)); err != nil {
		return "", err
	}
	for _, run := range runs {
		record := make([]string, len(metrics)+1)
		record[0] = run
		for i, metric := range metrics {
			if v, ok := results[run][metric]; ok {
				record[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return b.String(), w.Error()
}
