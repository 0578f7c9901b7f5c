package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/pathranger/internal/domain"
)

// Output formats for listing commands.
const (
	formatTable = "table"
	formatPlain = "plain"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var (
	red     = color.New(color.FgRed).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	blue    = color.New(color.FgBlue).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
	tagName = color.New(color.FgGreen, color.Bold).SprintFunc()
)

type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case formatTable, formatPlain, formatJSON, formatYAML:
		return &printer{w: w, format: format}, nil
	}
	return nil, usageErrorf("unknown output format %q (want table, plain, json or yaml)", format)
}

func (p *printer) entries(title string, entries []domain.RankedEntry) error {
	switch p.format {
	case formatJSON:
		return p.json(nonNil(entries))
	case formatYAML:
		return p.yaml(nonNil(entries))
	case formatPlain:
		for _, e := range entries {
			fmt.Fprintln(p.w, e.Path)
		}
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(p.w, "No directories recorded yet.")
		return nil
	}

	fmt.Fprintln(p.w, bold(title))
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "%s  %s  %s  %s\n",
		bold(pad("#", 3)), bold(pad("Score", 8)), bold(pad("Visits", 6)), bold("Directory"))
	for i, e := range entries {
		fmt.Fprintf(p.w, "%s  %s  %s  %s  %s\n",
			pad(fmt.Sprintf("%d", i+1), 3),
			yellow(pad(fmt.Sprintf("%.2f", e.Score), 8)),
			pad(fmt.Sprintf("%d", e.VisitCount), 6),
			blue(displayPath(e.Path)),
			ago(e.LastVisited))
	}
	return nil
}

func (p *printer) searchResults(query string, results []domain.SearchResult) error {
	switch p.format {
	case formatJSON:
		return p.json(nonNil(results))
	case formatYAML:
		return p.yaml(nonNil(results))
	case formatPlain:
		for _, r := range results {
			fmt.Fprintln(p.w, r.Path)
		}
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintf(p.w, "No matches for '%s'\n", query)
		return nil
	}

	fmt.Fprintf(p.w, "%s '%s':\n\n", bold("Search results for"), query)
	for _, r := range results {
		label := pad("path", 5)
		if r.Kind == domain.KindTag {
			label = pad("tag", 5)
		}
		name := ""
		if r.Tag != "" {
			name = tagName(r.Tag) + " -> "
		}
		fmt.Fprintf(p.w, "%s  %s  %s%s\n",
			yellow(pad(fmt.Sprintf("%.0f", r.MatchScore), 6)), label, name, blue(displayPath(r.Path)))
	}
	return nil
}

func (p *printer) tags(tags []domain.Tag) error {
	switch p.format {
	case formatJSON:
		return p.json(nonNil(tags))
	case formatYAML:
		return p.yaml(nonNil(tags))
	case formatPlain:
		for _, t := range tags {
			fmt.Fprintf(p.w, "%s\t%s\n", t.Name, t.Path)
		}
		return nil
	}

	if len(tags) == 0 {
		fmt.Fprintln(p.w, "No tags defined yet. Use 'pathranger mark <tag>' to create one.")
		return nil
	}

	width := 3
	for _, t := range tags {
		width = max(width, len(t.Name))
	}

	fmt.Fprintln(p.w, bold("Your tags:"))
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "%s  %s\n", bold(pad("Tag", width)), bold("Directory"))
	for _, t := range tags {
		fmt.Fprintf(p.w, "%s  %s\n", tagName(pad(t.Name, width)), blue(displayPath(t.Path)))
	}
	return nil
}

func (p *printer) json(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(data))
	return err
}

func (p *printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// pad is applied before colouring so escape codes don't skew the columns.
func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}

// displayPath abbreviates the home directory to ~.
func displayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return abbreviateHome(path, home)
}

func abbreviateHome(path, home string) string {
	home = strings.TrimSuffix(home, "/")
	if home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+"/") {
		return "~" + path[len(home):]
	}
	return path
}

func ago(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
