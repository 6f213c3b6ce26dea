package volume

import (
	"math"
	"testing"
)

// TestChannel verifies 4-D channel extraction
func TestChannel(t *testing.T) {
	v := New(2, 2, 2, 3)
	size := 2 * 2 * 2
	for c := 0; c < 3; c++ {
		for i := 0; i < size; i++ {
			v.Data[c*size+i] = float64(c)
		}
	}

	for c := 0; c < 3; c++ {
		ch, err := v.Channel(c)
		if err != nil {
			t.Fatalf("Channel(%d) failed: %v", c, err)
		}
		if ch.Nt != 1 || ch.Nx != 2 || ch.Ny != 2 || ch.Nz != 2 {
			t.Errorf("Channel(%d) has wrong dimensions: %dx%dx%dx%d", c, ch.Nx, ch.Ny, ch.Nz, ch.Nt)
		}
		for i, val := range ch.Data {
			if val != float64(c) {
				t.Fatalf("Channel(%d) voxel %d = %f, expected %d", c, i, val, c)
			}
		}
	}

	if _, err := v.Channel(3); err == nil {
		t.Error("Expected error for out-of-range channel")
	}
}

// TestLabelMask verifies binary mask construction from label values
func TestLabelMask(t *testing.T) {
	v := New(3, 3, 3, 1)
	v.Set(0, 0, 0, 2)
	v.Set(1, 1, 1, 2)
	v.Set(2, 2, 2, 1)

	mask := v.LabelMask(2)
	if got := mask.Sum(); got != 2 {
		t.Errorf("Expected 2 voxels in mask, got %f", got)
	}
	if mask.At(0, 0, 0) != 1 || mask.At(1, 1, 1) != 1 {
		t.Error("Mask does not cover label voxels")
	}
	if mask.At(2, 2, 2) != 0 {
		t.Error("Mask covers a voxel of a different label")
	}

	empty := v.LabelMask(7)
	if empty.Sum() != 0 {
		t.Error("Expected empty mask for absent label")
	}
}

// TestZoomConstantField verifies that resampling a constant volume
// preserves the constant and scales the dimensions
func TestZoomConstantField(t *testing.T) {
	v := New(20, 20, 20, 1)
	for i := range v.Data {
		v.Data[i] = 1
	}

	small, err := v.Zoom(0.6)
	if err != nil {
		t.Fatalf("Zoom failed: %v", err)
	}

	if small.Nx != 12 || small.Ny != 12 || small.Nz != 12 {
		t.Errorf("Expected 12x12x12 output, got %dx%dx%d", small.Nx, small.Ny, small.Nz)
	}
	for i, val := range small.Data {
		if math.Abs(val-1) > 1e-12 {
			t.Fatalf("Voxel %d = %f, expected 1.0", i, val)
		}
	}
}

// TestZoomRange verifies that interpolated values of a binary mask stay
// inside [0,1], which makes 0.5 a valid iso level
func TestZoomRange(t *testing.T) {
	v := New(10, 10, 10, 1)
	for z := 3; z < 7; z++ {
		for y := 3; y < 7; y++ {
			for x := 3; x < 7; x++ {
				v.Set(x, y, z, 1)
			}
		}
	}

	small, err := v.Zoom(0.6)
	if err != nil {
		t.Fatalf("Zoom failed: %v", err)
	}

	min, max := small.MinMax()
	if min < 0 || max > 1 {
		t.Errorf("Zoomed mask outside [0,1]: min=%f max=%f", min, max)
	}
	if max < 0.5 {
		t.Errorf("Zoomed mask lost its interior, max=%f", max)
	}
}

// TestZoomRejectsBadInput verifies zoom parameter validation
func TestZoomRejectsBadInput(t *testing.T) {
	v := New(10, 10, 10, 1)
	if _, err := v.Zoom(0); err == nil {
		t.Error("Expected error for zero factor")
	}
	if _, err := v.Zoom(-1); err == nil {
		t.Error("Expected error for negative factor")
	}

	v4 := New(10, 10, 10, 4)
	if _, err := v4.Zoom(0.5); err == nil {
		t.Error("Expected error when zooming a 4-D volume")
	}
}

// TestOtsuThreshold verifies that Otsu's method separates a bimodal volume
func TestOtsuThreshold(t *testing.T) {
	v := New(10, 10, 10, 1)
	for i := range v.Data {
		if i%2 == 0 {
			v.Data[i] = 10
		} else {
			v.Data[i] = 100
		}
	}

	threshold := v.OtsuThreshold()
	if threshold <= 10 || threshold >= 100 {
		t.Fatalf("Threshold %f does not separate the two classes", threshold)
	}

	mask := v.Threshold(threshold)
	if got, want := mask.Sum(), float64(len(v.Data)/2); got != want {
		t.Errorf("Foreground voxel count = %f, expected %f", got, want)
	}
}

// TestOtsuThresholdUniform verifies degenerate single-value input
func TestOtsuThresholdUniform(t *testing.T) {
	v := New(4, 4, 4, 1)
	for i := range v.Data {
		v.Data[i] = 5
	}
	if got := v.OtsuThreshold(); got != 5 {
		t.Errorf("Expected threshold 5 for uniform volume, got %f", got)
	}
}
