package webviz

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"brainmesh/internal/models"
)

func testSurface() models.Surface {
	return models.Surface{
		Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Faces:    [][3]int32{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}},
	}
}

func testSet(t *testing.T, names ...string) *models.SurfaceSet {
	t.Helper()
	set := models.NewSurfaceSet()
	for _, name := range names {
		entry, err := models.NewSurfaceEntry(name, "red", 0.5, testSurface())
		if err != nil {
			t.Fatalf("Failed to build entry %q: %v", name, err)
		}
		if err := set.Add(entry); err != nil {
			t.Fatalf("Failed to add entry %q: %v", name, err)
		}
	}
	return set
}

// extractData pulls the embedded trace array out of the page script
func extractData(t *testing.T, html string) []map[string]interface{} {
	t.Helper()
	start := strings.Index(html, "var data = ")
	if start < 0 {
		t.Fatal("Page does not embed a data array")
	}
	start += len("var data = ")
	end := strings.Index(html[start:], ";\n")
	if end < 0 {
		t.Fatal("Data array is not terminated")
	}

	var traces []map[string]interface{}
	if err := json.Unmarshal([]byte(html[start:start+end]), &traces); err != nil {
		t.Fatalf("Embedded data is not valid JSON: %v", err)
	}
	return traces
}

// TestExport verifies the page structure and the embedded scene data
func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.html")
	set := testSet(t, "Edema", "brain", "Enhancing")

	if err := Export(path, set); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		t.Fatalf("Output is not parseable HTML: %v", err)
	}

	if doc.Find("div#scene").Length() != 1 {
		t.Error("Page is missing the scene container div")
	}

	foundPlotly := false
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, _ := s.Attr("src"); strings.Contains(src, "plotly") {
			foundPlotly = true
		}
	})
	if !foundPlotly {
		t.Error("Page does not load the plotly library")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	traces := extractData(t, string(raw))

	if len(traces) != 3 {
		t.Fatalf("Expected 3 traces, got %d", len(traces))
	}
	// The brain layer always comes first regardless of set order
	if traces[0]["name"] != "brain" {
		t.Errorf("First trace = %v, expected brain", traces[0]["name"])
	}
	for _, tr := range traces {
		if tr["type"] != "mesh3d" {
			t.Errorf("Trace %v has type %v, expected mesh3d", tr["name"], tr["type"])
		}
		for _, key := range []string{"x", "y", "z", "i", "j", "k"} {
			arr, ok := tr[key].([]interface{})
			if !ok || len(arr) == 0 {
				t.Errorf("Trace %v is missing mesh field %q", tr["name"], key)
			}
		}
	}
}

// TestExportRequiresBrain verifies export fails without a brain entry
func TestExportRequiresBrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.html")
	set := testSet(t, "Edema", "Enhancing")

	if err := Export(path, set); err == nil {
		t.Error("Expected error for surface set without a brain entry")
	}
}

// TestExportDisplayAttributes verifies color and opacity reach the traces
func TestExportDisplayAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.html")

	set := models.NewSurfaceSet()
	entry, err := models.NewSurfaceEntry("brain", "pink", 0.2, testSurface())
	if err != nil {
		t.Fatalf("Failed to build entry: %v", err)
	}
	if err := set.Add(entry); err != nil {
		t.Fatalf("Failed to add entry: %v", err)
	}

	if err := Export(path, set); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	traces := extractData(t, string(raw))
	if len(traces) != 1 {
		t.Fatalf("Expected 1 trace, got %d", len(traces))
	}
	if traces[0]["color"] != "pink" {
		t.Errorf("Trace color = %v, expected pink", traces[0]["color"])
	}
	if traces[0]["opacity"] != 0.2 {
		t.Errorf("Trace opacity = %v, expected 0.2", traces[0]["opacity"])
	}
}
