// Package extraction implements the mask/surface extraction stage: it
// turns a labeled segmentation volume and a multi-channel intensity
// volume into a set of named, displayable iso-surfaces.
package extraction

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"brainmesh/internal/models"
	"brainmesh/pkg/config"
	"brainmesh/pkg/mesh"
	"brainmesh/pkg/nifti"
	"brainmesh/pkg/volume"
)

// Params holds the extraction parameters. These control the inputs,
// the resampling trade-off and the per-region display attributes.
type Params struct {
	// SegmentationPath is the NIfTI file holding the label volume.
	SegmentationPath string

	// IntensityPath is the NIfTI file holding the 4-D intensity volume.
	IntensityPath string

	// BrainChannel selects the intensity channel used for the
	// whole-brain mask.
	BrainChannel int

	// DownsampleFactor scales the masks before surface extraction.
	// Full-resolution MRI tumor volumes are too large for the intended
	// interactive and export use case.
	DownsampleFactor float64

	// IsoLevel is the marching cubes threshold. The downsampled mask is
	// continuous in [0,1], so 0.5 is the natural inside/outside boundary.
	IsoLevel float64

	// Labels lists the tumor sub-regions to extract.
	Labels []config.LabelSpec

	// BrainColor and BrainOpacity are the display attributes of the
	// whole-brain context shell.
	BrainColor   string
	BrainOpacity float64

	// SaveMasks enables saving the downsampled masks as JPEG slice
	// sequences for inspection.
	SaveMasks bool

	// MasksDir is the directory receiving mask previews.
	MasksDir string
}

// ParamsFromConfig builds extraction parameters from the loaded
// pipeline configuration.
func ParamsFromConfig(cfg *config.Config) *Params {
	return &Params{
		SegmentationPath: cfg.Input.Segmentation,
		IntensityPath:    cfg.Input.Intensity,
		BrainChannel:     cfg.Input.BrainChannel,
		DownsampleFactor: cfg.Processing.DownsampleFactor,
		IsoLevel:         cfg.Processing.IsoLevel,
		Labels:           cfg.Labels,
		BrainColor:       cfg.Brain.Color,
		BrainOpacity:     cfg.Brain.Opacity,
		SaveMasks:        cfg.Output.SaveMasks,
		MasksDir:         cfg.Output.MasksDir,
	}
}

// Extractor runs the mask/surface extraction stage.
type Extractor struct {
	params *Params
}

// NewExtractor creates an extractor with the provided parameters.
func NewExtractor(params *Params) *Extractor {
	return &Extractor{params: params}
}

// Process runs the full extraction: the whole-brain surface first, then
// one surface per non-empty tumor label. The returned set is ordered,
// with "brain" as the first entry, and is not mutated afterwards.
func (e *Extractor) Process() (*models.SurfaceSet, error) {
	set := models.NewSurfaceSet()

	// Step 1: whole-brain surface from the intensity volume
	fmt.Println("Step 1: Deriving whole-brain mask from intensity volume...")
	brainMask, err := e.brainMask()
	if err != nil {
		return nil, fmt.Errorf("failed to derive brain mask: %v", err)
	}

	brainSurface, err := e.extractSurface(models.Brain.String(), brainMask)
	if err != nil {
		return nil, fmt.Errorf("failed to extract brain surface: %v", err)
	}
	entry, err := models.NewSurfaceEntry(models.Brain.String(), e.params.BrainColor, e.params.BrainOpacity, brainSurface)
	if err != nil {
		return nil, err
	}
	if err := set.Add(entry); err != nil {
		return nil, err
	}

	// Step 2: tumor sub-region surfaces from the segmentation volume
	fmt.Println("Step 2: Extracting tumor region surfaces from segmentation...")
	segData, err := nifti.Load(e.params.SegmentationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load segmentation: %v", err)
	}

	for _, label := range e.params.Labels {
		mask := segData.LabelMask(float64(label.ID))

		// A label with no voxels produces no entry. This is a silent
		// skip, not an error.
		if mask.Sum() == 0 {
			fmt.Printf("Label %d (%s) is empty, skipping\n", label.ID, label.Name)
			continue
		}

		surface, err := e.extractSurface(label.Name, mask)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s surface: %v", label.Name, err)
		}
		entry, err := models.NewSurfaceEntry(label.Name, label.Color, label.Opacity, surface)
		if err != nil {
			return nil, err
		}
		if err := set.Add(entry); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// brainMask loads the intensity volume, selects the configured channel
// and binarizes it with Otsu's automatic threshold.
func (e *Extractor) brainMask() (*volume.Volume, error) {
	intensity, err := nifti.Load(e.params.IntensityPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load intensity volume: %v", err)
	}

	channel := intensity
	if intensity.Nt > 1 {
		channel, err = intensity.Channel(e.params.BrainChannel)
		if err != nil {
			return nil, err
		}
	}

	threshold := channel.OtsuThreshold()
	fmt.Printf("Otsu threshold for brain mask: %.3f\n", threshold)
	return channel.Threshold(threshold), nil
}

// extractSurface downsamples a binary mask and runs marching cubes on
// the interpolated result.
func (e *Extractor) extractSurface(name string, mask *volume.Volume) (models.Surface, error) {
	small, err := mask.Zoom(e.params.DownsampleFactor)
	if err != nil {
		return models.Surface{}, err
	}

	if e.params.SaveMasks {
		if err := e.saveMaskPreviews(name, small); err != nil {
			fmt.Printf("Warning: failed to save %s mask previews: %v\n", name, err)
		}
	}

	mc := mesh.NewMarchingCubes(small.Data, small.Nx, small.Ny, small.Nz, e.params.IsoLevel)
	triangles := mc.GenerateTriangles()
	if len(triangles) == 0 {
		return models.Surface{}, fmt.Errorf("no iso-surface at level %.2f for %s", e.params.IsoLevel, name)
	}

	surface := mesh.BuildSurface(triangles)
	fmt.Printf("Num vertices: %s | %d (%d triangles)\n", name, len(surface.Vertices), len(surface.Faces))
	return surface, nil
}

// saveMaskPreviews writes every z-slice of a downsampled mask as a JPEG
// image for visual inspection of the resampling step.
func (e *Extractor) saveMaskPreviews(name string, mask *volume.Volume) error {
	dir := filepath.Join(e.params.MasksDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create mask preview directory: %v", err)
	}

	for z := 0; z < mask.Nz; z++ {
		img := image.NewGray16(image.Rect(0, 0, mask.Nx, mask.Ny))
		for y := 0; y < mask.Ny; y++ {
			for x := 0; x < mask.Nx; x++ {
				v := mask.At(x, y, z)
				if v < 0 {
					v = 0
				} else if v > 1 {
					v = 1
				}
				img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535)})
			}
		}

		filename := filepath.Join(dir, fmt.Sprintf("slice_%03d.jpg", z))
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
			file.Close()
			return err
		}
		file.Close()
	}

	return nil
}
