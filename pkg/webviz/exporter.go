// Package webviz assembles extracted surfaces into a single interactive
// 3-D scene and writes it as a self-contained HTML document, viewable in
// a browser without a server.
package webviz

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"brainmesh/internal/models"
)

// trace is one plotly mesh3d layer.
type trace struct {
	Type       string    `json:"type"`
	X          []float32 `json:"x"`
	Y          []float32 `json:"y"`
	Z          []float32 `json:"z"`
	I          []int32   `json:"i"`
	J          []int32   `json:"j"`
	K          []int32   `json:"k"`
	Color      string    `json:"color"`
	Opacity    float64   `json:"opacity"`
	Name       string    `json:"name"`
	ShowLegend bool      `json:"showlegend"`
}

func traceFrom(entry *models.SurfaceEntry) trace {
	t := trace{
		Type:       "mesh3d",
		X:          make([]float32, len(entry.Surface.Vertices)),
		Y:          make([]float32, len(entry.Surface.Vertices)),
		Z:          make([]float32, len(entry.Surface.Vertices)),
		I:          make([]int32, len(entry.Surface.Faces)),
		J:          make([]int32, len(entry.Surface.Faces)),
		K:          make([]int32, len(entry.Surface.Faces)),
		Color:      entry.Color,
		Opacity:    entry.Opacity,
		Name:       entry.Name,
		ShowLegend: true,
	}
	for i, v := range entry.Surface.Vertices {
		t.X[i], t.Y[i], t.Z[i] = v[0], v[1], v[2]
	}
	for i, f := range entry.Surface.Faces {
		t.I[i], t.J[i], t.K[i] = f[0], f[1], f[2]
	}
	return t
}

var pageTemplate = template.Must(template.New("scene").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>brainmesh</title>
<script src="https://cdn.plot.ly/plotly-2.27.0.min.js"></script>
</head>
<body>
<div id="scene" style="width:100%;height:100vh;"></div>
<script>
var data = {{.Traces}};
Plotly.newPlot("scene", data, {showlegend: true, scene: {aspectmode: "data"}});
</script>
</body>
</html>
`))

// Export writes the surface set as an interactive HTML document. The
// brain entry is the translucent context shell and must be present; it
// is always the first mesh layer so the other structures draw on top.
func Export(path string, set *models.SurfaceSet) error {
	brain, ok := set.Region(models.Brain)
	if !ok {
		return fmt.Errorf("surface set has no brain entry")
	}

	traces := []trace{traceFrom(brain)}
	for _, entry := range set.Entries() {
		if entry == brain {
			continue
		}
		traces = append(traces, traceFrom(entry))
	}

	payload, err := json.Marshal(traces)
	if err != nil {
		return fmt.Errorf("failed to encode mesh layers: %v", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML file: %v", err)
	}
	defer file.Close()

	return pageTemplate.Execute(file, struct {
		Traces template.JS
	}{Traces: template.JS(payload)})
}
