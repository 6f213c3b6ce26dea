package extraction

import (
	"os"
	"path/filepath"
	"testing"

	"brainmesh/pkg/config"
	"brainmesh/pkg/nifti"
	"brainmesh/pkg/volume"
)

// fillBlock sets a cubic region of a volume to a constant value
func fillBlock(v *volume.Volume, x0, y0, z0, x1, y1, z1 int, val float64) {
	for z := z0; z < z1; z++ {
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				v.Set(x, y, z, val)
			}
		}
	}
}

// writeTestVolumes synthesizes a segmentation/intensity pair on disk.
// The segmentation carries labels 1 and 3 but no label 2 voxels; the
// intensity volume is 4-D with a bright brain region on every channel.
func writeTestVolumes(t *testing.T, dir string) (segPath, mriPath string) {
	t.Helper()
	size := 24

	seg := volume.New(size, size, size, 1)
	fillBlock(seg, 4, 4, 4, 12, 12, 12, 1)    // Edema
	fillBlock(seg, 14, 14, 14, 20, 20, 20, 3) // Enhancing

	mri := volume.New(size, size, size, 4)
	chSize := size * size * size
	for c := 0; c < 4; c++ {
		ch := volume.New(size, size, size, 1)
		fillBlock(ch, 2, 2, 2, 22, 22, 22, 100)
		copy(mri.Data[c*chSize:(c+1)*chSize], ch.Data)
	}

	segPath = filepath.Join(dir, "seg.nii.gz")
	mriPath = filepath.Join(dir, "mri.nii.gz")
	if err := nifti.Save(segPath, seg); err != nil {
		t.Fatalf("Failed to write segmentation: %v", err)
	}
	if err := nifti.Save(mriPath, mri); err != nil {
		t.Fatalf("Failed to write intensity volume: %v", err)
	}
	return segPath, mriPath
}

func testParams(segPath, mriPath string) *Params {
	cfg := config.DefaultConfig()
	cfg.Input.Segmentation = segPath
	cfg.Input.Intensity = mriPath
	return ParamsFromConfig(cfg)
}

// TestProcess verifies the full extraction pipeline on synthetic volumes
func TestProcess(t *testing.T) {
	segPath, mriPath := writeTestVolumes(t, t.TempDir())

	set, err := NewExtractor(testParams(segPath, mriPath)).Process()
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// Label 2 (Necrotic) has no voxels and must be silently skipped
	if set.Len() != 3 {
		t.Fatalf("Expected 3 surfaces, got %d", set.Len())
	}

	entries := set.Entries()
	if entries[0].Name != "brain" {
		t.Errorf("First entry = %q, expected brain", entries[0].Name)
	}
	wantNames := []string{"brain", "Edema", "Enhancing"}
	for i, want := range wantNames {
		if entries[i].Name != want {
			t.Errorf("Entry %d = %q, expected %q", i, entries[i].Name, want)
		}
	}
	if _, ok := set.Get("Necrotic"); ok {
		t.Error("Empty label produced a surface entry")
	}

	for _, entry := range entries {
		if len(entry.Surface.Vertices) == 0 || len(entry.Surface.Faces) == 0 {
			t.Errorf("Entry %q has an empty surface", entry.Name)
		}
		if err := entry.Surface.Validate(); err != nil {
			t.Errorf("Entry %q surface invalid: %v", entry.Name, err)
		}
	}

	// Display attributes come from the label table
	edema, _ := set.Get("Edema")
	if edema.Color != "yellow" || edema.Opacity != 0.3 {
		t.Errorf("Edema display = %s/%f, expected yellow/0.3", edema.Color, edema.Opacity)
	}
	brain, _ := set.Get("brain")
	if brain.Color != "pink" || brain.Opacity != 0.2 {
		t.Errorf("Brain display = %s/%f, expected pink/0.2", brain.Color, brain.Opacity)
	}
}

// TestProcessMissingIntensity verifies the error path when the intensity
// volume cannot be loaded
func TestProcessMissingIntensity(t *testing.T) {
	dir := t.TempDir()
	segPath, _ := writeTestVolumes(t, dir)

	params := testParams(segPath, filepath.Join(dir, "nope.nii.gz"))
	if _, err := NewExtractor(params).Process(); err == nil {
		t.Error("Expected error for missing intensity volume")
	}
}

// TestProcessMissingSegmentation verifies the error path when the
// segmentation volume cannot be loaded
func TestProcessMissingSegmentation(t *testing.T) {
	dir := t.TempDir()
	_, mriPath := writeTestVolumes(t, dir)

	params := testParams(filepath.Join(dir, "nope.nii.gz"), mriPath)
	if _, err := NewExtractor(params).Process(); err == nil {
		t.Error("Expected error for missing segmentation volume")
	}
}

// TestProcessSavesMaskPreviews verifies JPEG slice dumps are written
func TestProcessSavesMaskPreviews(t *testing.T) {
	dir := t.TempDir()
	segPath, mriPath := writeTestVolumes(t, dir)

	params := testParams(segPath, mriPath)
	params.SaveMasks = true
	params.MasksDir = filepath.Join(dir, "masks")

	if _, err := NewExtractor(params).Process(); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	files, err := os.ReadDir(filepath.Join(params.MasksDir, "brain"))
	if err != nil {
		t.Fatalf("Failed to read mask preview directory: %v", err)
	}
	if len(files) == 0 {
		t.Error("No mask preview images written")
	}
}
