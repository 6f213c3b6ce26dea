// Package volume provides the in-memory representation of volumetric
// imaging data and the grid operations used by the extraction pipeline:
// channel selection, label masking, Otsu auto-thresholding and
// interpolation-based resampling.
package volume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Volume is a 3-D or 4-D grid of intensity or label values stored as a
// flat slice in x-fastest order. For 4-D data the channel (time) axis is
// the slowest one, matching the NIfTI dimension convention. A volume is
// immutable once loaded; operations return new volumes.
type Volume struct {
	// Data holds the voxel values, indexed as
	// ((t*Nz + z)*Ny + y)*Nx + x.
	Data []float64

	// Nx, Ny, Nz are the spatial dimensions in voxels.
	Nx, Ny, Nz int

	// Nt is the number of channels; 1 for purely spatial volumes.
	Nt int
}

// New allocates a zero-filled volume with the given dimensions.
func New(nx, ny, nz, nt int) *Volume {
	if nt < 1 {
		nt = 1
	}
	return &Volume{
		Data: make([]float64, nx*ny*nz*nt),
		Nx:   nx,
		Ny:   ny,
		Nz:   nz,
		Nt:   nt,
	}
}

// Idx returns the flat index of a spatial coordinate in channel 0.
func (v *Volume) Idx(x, y, z int) int {
	return (z*v.Ny+y)*v.Nx + x
}

// At returns the value at a spatial coordinate in channel 0.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Idx(x, y, z)]
}

// Set stores a value at a spatial coordinate in channel 0.
func (v *Volume) Set(x, y, z int, val float64) {
	v.Data[v.Idx(x, y, z)] = val
}

// Channel extracts a single channel of a 4-D volume as a 3-D volume.
func (v *Volume) Channel(t int) (*Volume, error) {
	if t < 0 || t >= v.Nt {
		return nil, fmt.Errorf("channel %d out of range, volume has %d channels", t, v.Nt)
	}
	size := v.Nx * v.Ny * v.Nz
	out := &Volume{
		Data: make([]float64, size),
		Nx:   v.Nx,
		Ny:   v.Ny,
		Nz:   v.Nz,
		Nt:   1,
	}
	copy(out.Data, v.Data[t*size:(t+1)*size])
	return out, nil
}

// LabelMask builds a binary volume that is 1 where the voxel value
// equals the given label and 0 elsewhere.
func (v *Volume) LabelMask(label float64) *Volume {
	out := New(v.Nx, v.Ny, v.Nz, 1)
	size := v.Nx * v.Ny * v.Nz
	for i := 0; i < size && i < len(v.Data); i++ {
		if v.Data[i] == label {
			out.Data[i] = 1
		}
	}
	return out
}

// Threshold builds a binary volume that is 1 where the voxel value is
// strictly greater than t.
func (v *Volume) Threshold(t float64) *Volume {
	out := New(v.Nx, v.Ny, v.Nz, v.Nt)
	for i, val := range v.Data {
		if val > t {
			out.Data[i] = 1
		}
	}
	return out
}

// Sum returns the sum of all voxel values. For binary masks this is the
// voxel count, which the extractor uses for the empty-mask skip.
func (v *Volume) Sum() float64 {
	return floats.Sum(v.Data)
}

// MinMax returns the minimum and maximum voxel values.
func (v *Volume) MinMax() (float64, float64) {
	if len(v.Data) == 0 {
		return 0, 0
	}
	return floats.Min(v.Data), floats.Max(v.Data)
}

// OtsuThreshold computes the intensity threshold that maximizes the
// between-class variance over a 256-bin histogram of the voxel values.
// Voxels above the returned threshold belong to the foreground class.
func (v *Volume) OtsuThreshold() float64 {
	min, max := v.MinMax()
	if max <= min {
		return min
	}

	const numBins = 256
	hist := make([]float64, numBins)
	binWidth := (max - min) / float64(numBins)

	for _, val := range v.Data {
		binIdx := int((val - min) / binWidth)
		if binIdx >= numBins {
			binIdx = numBins - 1
		} else if binIdx < 0 {
			binIdx = 0
		}
		hist[binIdx]++
	}

	total := float64(len(v.Data))

	// Weighted sum of all bin centers, used to track the mean of the
	// background and foreground classes as the threshold sweeps.
	sumAll := 0.0
	for i, count := range hist {
		sumAll += float64(i) * count
	}

	var (
		sumBack    float64
		weightBack float64
		bestVar    float64
		bestBin    int
	)
	for i := 0; i < numBins; i++ {
		weightBack += hist[i]
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(i) * hist[i]

		meanBack := sumBack / weightBack
		meanFore := (sumAll - sumBack) / weightFore
		diff := meanBack - meanFore
		betweenVar := weightBack * weightFore * diff * diff
		if betweenVar > bestVar {
			bestVar = betweenVar
			bestBin = i
		}
	}

	// The threshold is the upper edge of the chosen bin mapped back to
	// intensity space.
	return min + (float64(bestBin)+0.5)*binWidth
}

// Zoom resamples the volume by the given scale factor using trilinear
// interpolation. Output dimensions are round(factor * dim). Interpolated
// values stay within the input value range, so a binary mask zoomed with
// this function is continuous in [0,1] and 0.5 is the natural boundary
// between inside and outside.
func (v *Volume) Zoom(factor float64) (*Volume, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("zoom factor must be positive, got %g", factor)
	}
	if v.Nt != 1 {
		return nil, fmt.Errorf("zoom requires a 3-D volume, got %d channels", v.Nt)
	}

	nx := int(math.Round(float64(v.Nx) * factor))
	ny := int(math.Round(float64(v.Ny) * factor))
	nz := int(math.Round(float64(v.Nz) * factor))
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("zoom factor %g collapses volume %dx%dx%d", factor, v.Nx, v.Ny, v.Nz)
	}

	out := New(nx, ny, nz, 1)

	for z := 0; z < nz; z++ {
		sz := clamp(float64(z)/factor, 0, float64(v.Nz-1))
		z0 := int(sz)
		z1 := minInt(z0+1, v.Nz-1)
		fz := sz - float64(z0)

		for y := 0; y < ny; y++ {
			sy := clamp(float64(y)/factor, 0, float64(v.Ny-1))
			y0 := int(sy)
			y1 := minInt(y0+1, v.Ny-1)
			fy := sy - float64(y0)

			for x := 0; x < nx; x++ {
				sx := clamp(float64(x)/factor, 0, float64(v.Nx-1))
				x0 := int(sx)
				x1 := minInt(x0+1, v.Nx-1)
				fx := sx - float64(x0)

				c000 := v.At(x0, y0, z0)
				c100 := v.At(x1, y0, z0)
				c010 := v.At(x0, y1, z0)
				c110 := v.At(x1, y1, z0)
				c001 := v.At(x0, y0, z1)
				c101 := v.At(x1, y0, z1)
				c011 := v.At(x0, y1, z1)
				c111 := v.At(x1, y1, z1)

				c00 := c000*(1-fx) + c100*fx
				c10 := c010*(1-fx) + c110*fx
				c01 := c001*(1-fx) + c101*fx
				c11 := c011*(1-fx) + c111*fx

				c0 := c00*(1-fy) + c10*fy
				c1 := c01*(1-fy) + c11*fy

				out.Set(x, y, z, c0*(1-fz)+c1*fz)
			}
		}
	}

	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
