// Package nifti reads and writes volumes in the NIfTI-1 neuroimaging
// format (.nii and .nii.gz), the standard container for voxel grids
// with an affine orientation header. Only the single-file layout is
// supported; the header and voxel payload live in the same file.
package nifti

import (
	"compress/gzip"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"brainmesh/pkg/volume"
)

// NIfTI-1 datatype codes for the voxel payload.
const (
	typeUint8   = 2
	typeInt16   = 4
	typeInt32   = 8
	typeFloat32 = 16
	typeFloat64 = 64
	typeUint16  = 512
)

const headerSize = 348

// header mirrors the fixed 348-byte nifti_1_header layout so it can be
// read and written with encoding/binary directly.
type header struct {
	SizeofHdr    int32
	DataType     [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte
	Dim          [8]int16
	IntentP1     float32
	IntentP2     float32
	IntentP3     float32
	IntentCode   int16
	Datatype     int16
	Bitpix       int16
	SliceStart   int16
	Pixdim       [8]float32
	VoxOffset    float32
	SclSlope     float32
	SclInter     float32
	SliceEnd     int16
	SliceCode    byte
	XyztUnits    byte
	CalMax       float32
	CalMin       float32
	SliceDur     float32
	Toffset      float32
	Glmax        int32
	Glmin        int32
	Descrip      [80]byte
	AuxFile      [24]byte
	QformCode    int16
	SformCode    int16
	QuaternB     float32
	QuaternC     float32
	QuaternD     float32
	QoffsetX     float32
	QoffsetY     float32
	QoffsetZ     float32
	SrowX        [4]float32
	SrowY        [4]float32
	SrowZ        [4]float32
	IntentName   [16]byte
	Magic        [4]byte
}

// Load reads a NIfTI-1 volume from disk. Gzip compression is detected
// from the file contents, not the extension. Intensity scaling
// (scl_slope/scl_inter) is applied when the header requests it.
func Load(path string) (*volume.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open nifti file")
	}
	defer f.Close()

	var r io.Reader = f
	var sniff [2]byte
	if _, err := io.ReadFull(f, sniff[:]); err != nil {
		return nil, errors.Wrap(err, "read nifti file")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewind nifti file")
	}
	if sniff[0] == 0x1f && sniff[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	return read(r)
}

func read(r io.Reader) (*volume.Volume, error) {
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "read nifti header")
	}
	if hdr.SizeofHdr != headerSize {
		return nil, errors.Errorf("bad header size %d, want %d", hdr.SizeofHdr, headerSize)
	}
	magic := string(hdr.Magic[:3])
	if magic != "n+1" && magic != "ni1" {
		return nil, errors.Errorf("bad magic %q, not a NIfTI-1 file", magic)
	}

	ndim := int(hdr.Dim[0])
	if ndim < 3 || ndim > 4 {
		return nil, errors.Errorf("unsupported dimensionality %d, want 3 or 4", ndim)
	}
	nx, ny, nz := int(hdr.Dim[1]), int(hdr.Dim[2]), int(hdr.Dim[3])
	nt := 1
	if ndim == 4 {
		nt = int(hdr.Dim[4])
	}
	if nx < 1 || ny < 1 || nz < 1 || nt < 1 {
		return nil, errors.Errorf("bad volume dimensions %dx%dx%dx%d", nx, ny, nz, nt)
	}

	// The voxel payload starts at vox_offset; skip whatever header
	// extensions sit between it and the fixed header.
	if pad := int64(hdr.VoxOffset) - headerSize; pad > 0 {
		if _, err := io.CopyN(io.Discard, r, pad); err != nil {
			return nil, errors.Wrap(err, "skip header extensions")
		}
	}

	n := nx * ny * nz * nt
	data := make([]float64, n)
	if err := readVoxels(r, hdr.Datatype, data); err != nil {
		return nil, err
	}

	// scl_slope == 0 means no scaling per the NIfTI-1 spec.
	if hdr.SclSlope != 0 && !(hdr.SclSlope == 1 && hdr.SclInter == 0) {
		slope, inter := float64(hdr.SclSlope), float64(hdr.SclInter)
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}

	return &volume.Volume{Data: data, Nx: nx, Ny: ny, Nz: nz, Nt: nt}, nil
}

func readVoxels(r io.Reader, datatype int16, out []float64) error {
	switch datatype {
	case typeUint8:
		buf := make([]uint8, len(out))
		if _, err := io.ReadFull(r, buf); err != nil {
			return errors.Wrap(err, "read voxel data")
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case typeInt16:
		buf := make([]int16, len(out))
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return errors.Wrap(err, "read voxel data")
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case typeUint16:
		buf := make([]uint16, len(out))
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return errors.Wrap(err, "read voxel data")
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case typeInt32:
		buf := make([]int32, len(out))
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return errors.Wrap(err, "read voxel data")
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case typeFloat32:
		buf := make([]float32, len(out))
		if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
			return errors.Wrap(err, "read voxel data")
		}
		for i, v := range buf {
			out[i] = float64(v)
		}
	case typeFloat64:
		if err := binary.Read(r, binary.LittleEndian, out); err != nil {
			return errors.Wrap(err, "read voxel data")
		}
	default:
		return errors.Errorf("unsupported datatype code %d", datatype)
	}
	return nil
}

// Save writes a volume as a single-file NIfTI-1 volume with float32
// voxels and an identity orientation. Paths ending in .gz are
// gzip-compressed.
func Save(path string, v *volume.Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create nifti file")
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	return write(w, v)
}

func write(w io.Writer, v *volume.Volume) error {
	hdr := header{
		SizeofHdr: headerSize,
		Datatype:  typeFloat32,
		Bitpix:    32,
		VoxOffset: headerSize + 4,
		SclSlope:  1,
		Pixdim:    [8]float32{1, 1, 1, 1, 1, 1, 1, 1},
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	if v.Nt > 1 {
		hdr.Dim = [8]int16{4, int16(v.Nx), int16(v.Ny), int16(v.Nz), int16(v.Nt), 1, 1, 1}
	} else {
		hdr.Dim = [8]int16{3, int16(v.Nx), int16(v.Ny), int16(v.Nz), 1, 1, 1, 1}
	}

	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "write nifti header")
	}
	// Empty extension marker padding up to vox_offset.
	if _, err := w.Write(make([]byte, 4)); err != nil {
		return errors.Wrap(err, "write extension marker")
	}

	buf := make([]float32, len(v.Data))
	for i, val := range v.Data {
		buf[i] = float32(val)
	}
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		return errors.Wrap(err, "write voxel data")
	}
	return nil
}
