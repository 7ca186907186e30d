// Command metrics_parity compares the reports dashboard served by two deployments, typically one
// backed by the REST collection store and one backed by Postgres, across a list of filters.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/noah-isme/tutoria-api/internal/aggregate"
)

type target struct {
	Name      string `json:"name"`
	DateStart string `json:"dateStart"`
	DateEnd   string `json:"dateEnd"`
	Subject   string `json:"subject"`
	Critical  bool   `json:"critical"`
}

type targetFile struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target        target
	Diffs         []string
	Err           error
	DurationLeft  time.Duration
	DurationRight time.Duration
}

type reportsEnvelope struct {
	Data struct {
		Metrics aggregate.Metrics `json:"metrics"`
	} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

func main() {
	var (
		leftBase    string
		rightBase   string
		prefix      string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&leftBase, "left", "http://localhost:8080", "first deployment base URL")
	flag.StringVar(&rightBase, "right", "http://localhost:8081", "second deployment base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API prefix")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "metrics_parity", "targets.json"), "path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []comparison
		breaking int
		minor    int
	)
	for _, t := range targets {
		res := compareTarget(client, leftBase+prefix, rightBase+prefix, t)
		if res.Err != nil || len(res.Diffs) > 0 {
			if t.Critical {
				breaking++
			} else {
				minor++
			}
		}
		results = append(results, res)
	}

	printReport(os.Stdout, results)
	fmt.Printf("Breaking diffs: %d, Minor diffs: %d\n", breaking, minor)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func compareTarget(client *http.Client, leftBase, rightBase string, t target) comparison {
	res := comparison{Target: t}
	left, leftDur, err := fetchReports(client, leftBase, t)
	res.DurationLeft = leftDur
	if err != nil {
		res.Err = fmt.Errorf("left: %w", err)
		return res
	}
	right, rightDur, err := fetchReports(client, rightBase, t)
	res.DurationRight = rightDur
	if err != nil {
		res.Err = fmt.Errorf("right: %w", err)
		return res
	}
	res.Diffs = diffMetrics(left, right)
	return res
}

func fetchReports(client *http.Client, base string, t target) (aggregate.Metrics, time.Duration, error) {
	if client == nil {
		return aggregate.Metrics{}, 0, errors.New("nil client")
	}
	query := url.Values{}
	if t.DateStart != "" {
		query.Set("dateStart", t.DateStart)
	}
	if t.DateEnd != "" {
		query.Set("dateEnd", t.DateEnd)
	}
	if t.Subject != "" {
		query.Set("subject", t.Subject)
	}
	endpoint := strings.TrimRight(base, "/") + "/dashboard/reports"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	start := time.Now()
	resp, err := client.Get(endpoint)
	if err != nil {
		return aggregate.Metrics{}, 0, err
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return aggregate.Metrics{}, elapsed, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return aggregate.Metrics{}, elapsed, fmt.Errorf("status %d", resp.StatusCode)
	}
	var envelope reportsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return aggregate.Metrics{}, elapsed, fmt.Errorf("decode body: %w", err)
	}
	if degraded, _ := envelope.Meta["degraded"].(bool); degraded {
		return aggregate.Metrics{}, elapsed, errors.New("served degraded metrics")
	}
	return envelope.Data.Metrics, elapsed, nil
}

// diffMetrics names every top-level section that differs between the two payloads.
func diffMetrics(left, right aggregate.Metrics) []string {
	var diffs []string
	if left.TotalEvents != right.TotalEvents {
		diffs = append(diffs, fmt.Sprintf("totalEvents: %d != %d", left.TotalEvents, right.TotalEvents))
	}
	if left.UndatedEvents != right.UndatedEvents {
		diffs = append(diffs, fmt.Sprintf("undatedEvents: %d != %d", left.UndatedEvents, right.UndatedEvents))
	}
	if !reflect.DeepEqual(left.KPIs, right.KPIs) {
		diffs = append(diffs, fmt.Sprintf("kpis: %+v != %+v", left.KPIs, right.KPIs))
	}
	charts := map[string][2]aggregate.Series{
		"subjectAttendance": {left.Charts.SubjectAttendance, right.Charts.SubjectAttendance},
		"dayOfWeek":         {left.Charts.DayOfWeek, right.Charts.DayOfWeek},
		"peakHour":          {left.Charts.PeakHour, right.Charts.PeakHour},
		"tutorPerformance":  {left.Charts.TutorPerformance, right.Charts.TutorPerformance},
	}
	for _, name := range []string{"subjectAttendance", "dayOfWeek", "peakHour", "tutorPerformance"} {
		pair := charts[name]
		if !reflect.DeepEqual(pair[0], pair[1]) {
			diffs = append(diffs, fmt.Sprintf("charts.%s: %v != %v", name, pair[0], pair[1]))
		}
	}
	if !reflect.DeepEqual(left.CareerTable, right.CareerTable) {
		diffs = append(diffs, fmt.Sprintf("careerTable: %d rows != %d rows", len(left.CareerTable), len(right.CareerTable)))
	}
	return diffs
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Metrics Parity Report")
	fmt.Fprintln(w, "=====================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Err != nil:
			status = "ERROR"
		case len(res.Diffs) > 0:
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s (critical: %t)\n", status, res.Target.Name, res.Target.Critical)
		fmt.Fprintf(w, "  left %s | right %s\n", res.DurationLeft, res.DurationRight)
		if res.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", res.Err)
		}
		for _, d := range res.Diffs {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}
}
