// Package report renders benchmark results for people (table, markdown) and for
// scripts (csv, json).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"persistbench/benchmark/result"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Formats lists every accepted format.
var Formats = []string{FormatTable, FormatMarkdown, FormatCSV, FormatJSON}

type Options struct {
	Format      string
	Records     int
	Repetitions int
	RunID       string
}

// Render writes results in opts.Format. Results must share the same backends.
func Render(w io.Writer, results []*result.Result, opts Options) error {
	switch opts.Format {
	case FormatTable, "":
		return renderTable(w, results, opts, false)
	case FormatMarkdown:
		return renderTable(w, results, opts, true)
	case FormatCSV:
		return renderCSV(w, results)
	case FormatJSON:
		return renderJSON(w, results, opts)
	default:
		return fmt.Errorf("unknown report format %q (available: %s)", opts.Format, strings.Join(Formats, ", "))
	}
}

func backendsOf(results []*result.Result) []string {
	if len(results) == 0 {
		return nil
	}
	return results[0].Backends
}

func seconds(v float64) string {
	return fmt.Sprintf("%.6f", v)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func header(opts Options) string {
	return fmt.Sprintf("Run %s: %s records, %s repetitions per operation",
		opts.RunID, humanize.Comma(int64(opts.Records)), humanize.Comma(int64(opts.Repetitions)))
}

func renderTable(w io.Writer, results []*result.Result, opts Options, markdown bool) error {
	backends := backendsOf(results)

	tw := table.NewWriter()
	headerRow := table.Row{"Operation"}
	for _, b := range backends {
		headerRow = append(headerRow, b+" (s)")
	}
	headerRow = append(headerRow, "Fastest", "Improvement")
	tw.AppendHeader(headerRow)

	for _, r := range results {
		row := table.Row{r.Operation}
		for _, b := range backends {
			row = append(row, seconds(r.Average(b)))
		}
		row = append(row, r.FastestLabel(), percent(r.Improvement()))
		tw.AppendRow(row)
	}

	var body string
	if markdown {
		body = tw.RenderMarkdown()
	} else {
		tw.SetStyle(table.StyleLight)
		tw.SetTitle(header(opts))
		body = tw.Render()
	}
	_, err := io.WriteString(w, body+"\n")
	return err
}

// renderCSV prints one "Csv:" line per operation and one "CsvOps:" line per
// operation and backend, each kind preceded by its header line.
func renderCSV(w io.Writer, results []*result.Result) error {
	backends := backendsOf(results)

	var sb strings.Builder
	sb.WriteString("Csv:operation," + strings.Join(backends, ",") + ",fastest,improvement\n")
	for _, r := range results {
		line := "Csv:" + r.Operation
		for _, b := range backends {
			line += "," + seconds(r.Average(b))
		}
		line += fmt.Sprintf(",%s,%.1f\n", r.FastestLabel(), r.Improvement())
		sb.WriteString(line)
	}

	sb.WriteString("CsvOps:operation,backend,rt,rtMin,rtMax,rtP95,ct\n")
	for _, r := range results {
		for _, b := range backends {
			s := r.Stats[b]
			fmt.Fprintf(&sb, "CsvOps:%s,%s,%.6f,%.6f,%.6f,%.6f,%d\n",
				r.Operation, b, s.Average, s.Min, s.Max, s.P95, s.Samples)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

type jsonBackend struct {
	Name           string  `json:"name"`
	AverageSeconds float64 `json:"averageSeconds"`
	MinSeconds     float64 `json:"minSeconds"`
	MaxSeconds     float64 `json:"maxSeconds"`
	P95Seconds     float64 `json:"p95Seconds"`
	Samples        int     `json:"samples"`
}

type jsonResult struct {
	Operation          string        `json:"operation"`
	Fastest            []string      `json:"fastest"`
	Tie                bool          `json:"tie"`
	ImprovementPercent float64       `json:"improvementPercent"`
	Backends           []jsonBackend `json:"backends"`
}

type jsonReport struct {
	RunID       string       `json:"runId,omitempty"`
	Records     int          `json:"records"`
	Repetitions int          `json:"repetitions"`
	Results     []jsonResult `json:"results"`
}

func renderJSON(w io.Writer, results []*result.Result, opts Options) error {
	rep := jsonReport{
		RunID:       opts.RunID,
		Records:     opts.Records,
		Repetitions: opts.Repetitions,
		Results:     make([]jsonResult, 0, len(results)),
	}
	for _, r := range results {
		jr := jsonResult{
			Operation:          r.Operation,
			Fastest:            r.Fastest(),
			Tie:                r.IsTie(),
			ImprovementPercent: r.Improvement(),
		}
		for _, b := range r.Backends {
			s := r.Stats[b]
			jr.Backends = append(jr.Backends, jsonBackend{
				Name:           b,
				AverageSeconds: s.Average,
				MinSeconds:     s.Min,
				MaxSeconds:     s.Max,
				P95Seconds:     s.P95,
				Samples:        s.Samples,
			})
		}
		rep.Results = append(rep.Results, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
