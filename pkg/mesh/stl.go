package mesh

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// SaveToSTL writes triangles to a binary STL file: an 80-byte header,
// a uint32 triangle count, then 50 bytes per triangle (normal, three
// vertices, attribute word), all little-endian.
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create STL file")
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	var header [80]byte
	copy(header[:], "brainmesh binary STL")
	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "write STL header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return errors.Wrap(err, "write STL triangle count")
	}

	for _, tri := range triangles {
		if err := binary.Write(w, binary.LittleEndian, tri.Normal); err != nil {
			return errors.Wrap(err, "write STL normal")
		}
		for _, v := range [][3]float32{tri.Vertex1, tri.Vertex2, tri.Vertex3} {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return errors.Wrap(err, "write STL vertex")
			}
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			return errors.Wrap(err, "write STL attribute")
		}
	}

	return errors.Wrap(w.Flush(), "flush STL file")
}
