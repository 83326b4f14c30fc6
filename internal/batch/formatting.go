package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/qrscan/internal/detect"
)

// FileResult is the scan outcome of one input file.
type FileResult struct {
	File       string             `json:"file" yaml:"file"`
	Detections []detect.Detection `json:"detections" yaml:"-"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Format renders results as text, json, yaml or csv.
func Format(results []FileResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(results)
	case "yaml":
		return formatYAML(results)
	case "csv":
		return formatCSV(results)
	case "", "text":
		return formatText(results), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

func formatJSON(results []FileResult) (string, error) {
	doc := struct {
		Images []FileResult `json:"images"`
	}{Images: results}
	if doc.Images == nil {
		doc.Images = []FileResult{}
	}
	bts, err := json.MarshalIndent(doc, "", "  ")
	return string(bts) + "\n", err
}

type yamlDetection struct {
	Symbol  string   `yaml:"symbol"`
	Data    string   `yaml:"data"`
	Origin  string   `yaml:"origin"`
	Polygon [][2]int `yaml:"polygon,flow"`
}

type yamlFile struct {
	File       string          `yaml:"file"`
	Detections []yamlDetection `yaml:"detections"`
	Error      string          `yaml:"error,omitempty"`
}

func formatYAML(results []FileResult) (string, error) {
	out := make([]yamlFile, len(results))
	for i, r := range results {
		out[i] = yamlFile{File: r.File, Error: r.Error, Detections: []yamlDetection{}}
		for _, d := range r.Detections {
			yd := yamlDetection{Symbol: d.Symbol, Data: d.Payload, Origin: string(d.Origin)}
			for _, p := range d.Polygon {
				yd.Polygon = append(yd.Polygon, [2]int{p.X, p.Y})
			}
			out[i].Detections = append(out[i].Detections, yd)
		}
	}
	bts, err := yaml.Marshal(map[string]any{"images": out})
	return string(bts), err
}

func formatCSV(results []FileResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	rows := [][]string{{"file", "index", "symbol", "data", "origin", "x", "y", "error"}}

	for _, r := range results {
		if len(r.Detections) == 0 {
			rows = append(rows, []string{r.File, "", "", "", "", "", "", r.Error})
			continue
		}
		for j, d := range r.Detections {
			x, y := "", ""
			if len(d.Polygon) > 0 {
				x, y = strconv.Itoa(d.Polygon[0].X), strconv.Itoa(d.Polygon[0].Y)
			}
			rows = append(rows, []string{r.File, strconv.Itoa(j), d.Symbol, d.Payload, string(d.Origin), x, y, ""})
		}
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return output.String(), nil
}

func formatText(results []FileResult) string {
	var output strings.Builder
	for i, r := range results {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", r.File)
		if r.Error != "" {
			fmt.Fprintf(&output, "error: %s\n", r.Error)
			continue
		}
		if len(r.Detections) == 0 {
			output.WriteString("(no codes found)\n")
			continue
		}
		for _, d := range r.Detections {
			fmt.Fprintf(&output, "Type: %s\n%s\n", d.Symbol, d.Payload)
		}
	}
	return output.String()
}
