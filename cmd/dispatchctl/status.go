package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// backendReport mirrors internal/statusagg.BackendReport's wire shape —
// dispatchctl is a pure HTTP client and deliberately does not import the
// dispatcher's internal packages.
type backendReport struct {
	URL         string  `json:"url"`
	Weight      float64 `json:"weight"`
	MaxModel    string  `json:"max_model"`
	QueueSize   int     `json:"queue_size"`
	Active      bool    `json:"active"`
	Status      string  `json:"status"`
	ActiveModel string  `json:"active_model"`
}

type report struct {
	QueueSize      int             `json:"queue_size"`
	QueueSizeP50   float64         `json:"queue_size_p50"`
	ActiveBackends int             `json:"active_backends"`
	TotalBackends  int             `json:"total_backends"`
	Backends       []backendReport `json:"backends"`
	Timestamp      time.Time       `json:"timestamp"`
}

func runStatus(addr string, jsonOut, noColor bool) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/queue-status")
	if err != nil {
		return fmt.Errorf("fetching %s/queue-status: %w", addr, err)
	}
	defer resp.Body.Close()

	var rep report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	printTable(rep, colorEnabled(noColor))
	return nil
}

// colorEnabled applies the pack's usual rule: color is on by default
// when stdout is a terminal, off when piped, and always off with
// --no-color.
func colorEnabled(noColor bool) bool {
	if noColor {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func printTable(rep report, useColor bool) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	if !useColor {
		green = fmt.Sprint
		red = fmt.Sprint
	}

	fmt.Printf("backends: %d total, %d active  queue: %d (p50 %.1f)\n\n",
		rep.TotalBackends, rep.ActiveBackends, rep.QueueSize, rep.QueueSizeP50)

	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tWEIGHT\tMAX MODEL\tQUEUE\tACTIVE MODEL\tSTATUS")
	for _, b := range rep.Backends {
		status := red(b.Status)
		if b.Status == "online" {
			status = green(b.Status)
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%d\t%s\t%s\n", b.URL, b.Weight, b.MaxModel, b.QueueSize, b.ActiveModel, status)
	}
	tw.Flush()
}
