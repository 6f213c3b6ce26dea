package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"brainmesh/pkg/config"
	"brainmesh/pkg/extraction"
	"brainmesh/pkg/mesh"
	"brainmesh/pkg/usd"
	"brainmesh/pkg/webviz"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "brainmesh.yaml", "YAML configuration file (optional)")
	segPath := flag.String("seg", "", "Segmentation volume (NIfTI)")
	mriPath := flag.String("mri", "", "Multi-channel intensity volume (NIfTI)")
	brainChannel := flag.Int("channel", -1, "Intensity channel for the whole-brain mask")
	factor := flag.Float64("factor", 0, "Downsample factor applied before surface extraction")
	htmlPath := flag.String("html", "", "Output path for the interactive HTML scene")
	usdPath := flag.String("usd", "", "Output path for the USD scene graph")
	stlDir := flag.String("stl-dir", "", "Directory for optional per-region STL export")
	saveMasks := flag.Bool("save-masks", false, "Save downsampled mask slices as JPEG previews")
	masksDir := flag.String("masks-dir", "", "Directory for mask previews")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line flags override the configuration file
	if *segPath != "" {
		cfg.Input.Segmentation = *segPath
	}
	if *mriPath != "" {
		cfg.Input.Intensity = *mriPath
	}
	if *brainChannel >= 0 {
		cfg.Input.BrainChannel = *brainChannel
	}
	if *factor > 0 {
		cfg.Processing.DownsampleFactor = *factor
	}
	if *htmlPath != "" {
		cfg.Output.HTML = *htmlPath
	}
	if *usdPath != "" {
		cfg.Output.USD = *usdPath
	}
	if *stlDir != "" {
		cfg.Output.STLDir = *stlDir
	}
	if *saveMasks {
		cfg.Output.SaveMasks = true
	}
	if *masksDir != "" {
		cfg.Output.MasksDir = *masksDir
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("BRAIN MRI SEGMENTATION TO 3D SURFACE MESHES")
	fmt.Println("Iso-surface extraction with web and USD scene export")
	fmt.Println("================================")

	// Stage 1: extract one surface per region
	fmt.Println("Starting surface extraction...")
	startTime := time.Now()

	extractor := extraction.NewExtractor(extraction.ParamsFromConfig(cfg))
	set, err := extractor.Process()
	if err != nil {
		log.Fatalf("Surface extraction failed: %v", err)
	}
	fmt.Printf("Extracted %d surfaces in %.2f seconds\n", set.Len(), time.Since(startTime).Seconds())

	// Stage 2: interactive web visualization
	fmt.Println("Writing interactive HTML scene...")
	if err := webviz.Export(cfg.Output.HTML, set); err != nil {
		log.Fatalf("HTML export failed: %v", err)
	}

	// Stage 3: USD scene graph with materials
	fmt.Println("Writing USD scene graph...")
	if err := usd.Export(cfg.Output.USD, set, cfg.Colors); err != nil {
		log.Fatalf("USD export failed: %v", err)
	}

	// Optional per-region STL export
	if cfg.Output.STLDir != "" {
		fmt.Println("Writing per-region STL files...")
		if err := os.MkdirAll(cfg.Output.STLDir, 0755); err != nil {
			log.Fatalf("Failed to create STL directory: %v", err)
		}
		for _, entry := range set.Entries() {
			path := filepath.Join(cfg.Output.STLDir, entry.Name+".stl")
			if err := mesh.SaveToSTL(path, mesh.SurfaceTriangles(entry.Surface)); err != nil {
				log.Fatalf("STL export failed for %s: %v", entry.Name, err)
			}
		}
	}

	fmt.Printf("\nConversion completed in %.2f seconds\n\n", time.Since(startTime).Seconds())

	fmt.Println("Surfaces:")
	for _, entry := range set.Entries() {
		fmt.Printf("- %-10s %7d vertices, %7d triangles (%s, opacity %.1f)\n",
			entry.Name, len(entry.Surface.Vertices), len(entry.Surface.Faces),
			entry.Color, entry.Opacity)
	}

	fmt.Println("\nOutputs:")
	for _, path := range []string{cfg.Output.HTML, cfg.Output.USD} {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalf("Failed to stat output %s: %v", path, err)
		}
		fmt.Printf("- %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
	}
}
