// Package nifti implements a reader and writer for single-file NIfTI-1
// neuroimaging volumes (.nii and .nii.gz). Voxel data is exposed as
// float64 regardless of the on-disk data type, with slope/intercept
// scaling applied.
package nifti

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	headerSize = 348

	// Data type codes from the NIfTI-1 standard.
	typeUint8   = 2
	typeInt16   = 4
	typeInt32   = 8
	typeFloat32 = 16
	typeFloat64 = 64
)

var (
	// ErrNotNIfTI is returned when a stream does not start with a
	// NIfTI-1 header.
	ErrNotNIfTI = errors.New("nifti: not a NIfTI-1 file")

	// ErrDetachedImage is returned for two-file (.hdr/.img) datasets.
	ErrDetachedImage = errors.New("nifti: detached header/image pairs are not supported")
)

// UnsupportedDataTypeError is returned when a volume uses a data type
// code this package does not decode.
type UnsupportedDataTypeError struct {
	Code int16
}

func (e *UnsupportedDataTypeError) Error() string {
	return fmt.Sprintf("nifti: unsupported data type code %d", e.Code)
}

// UnsupportedDimError is returned when a volume has a non-singleton
// dimension beyond the third.
type UnsupportedDimError struct {
	Axis int
	Size int
}

func (e *UnsupportedDimError) Error() string {
	return fmt.Sprintf("nifti: dimension %d has size %d, want 1", e.Axis, e.Size)
}

// header is the fixed 348-byte NIfTI-1 header.
type header struct {
	SizeofHdr     int32
	DataTypeName  [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// Volume is a 3-D image with voxel data in float64. Data is stored
// with the first axis fastest, matching the on-disk layout.
type Volume struct {
	Dims [3]int
	Data []float64
}

// Len returns the number of voxels.
func (v *Volume) Len() int {
	return len(v.Data)
}

// Labels rounds every voxel to the nearest integer label. Use this
// for parcellation volumes.
func (v *Volume) Labels() []int32 {
	labels := make([]int32, len(v.Data))
	for i, val := range v.Data {
		labels[i] = int32(math.Round(val))
	}
	return labels
}

// Open reads a volume from a .nii or .nii.gz file.
func Open(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nifti: open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 256*1024)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("nifti: gunzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	v, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("nifti: read %s: %w", path, err)
	}
	return v, nil
}

// Read decodes a single-file NIfTI-1 volume from r.
func Read(r io.Reader) (*Volume, error) {
	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	// sizeof_hdr doubles as the byte order probe.
	var order binary.ByteOrder = binary.LittleEndian
	if int32(binary.LittleEndian.Uint32(raw[:4])) != headerSize {
		if int32(binary.BigEndian.Uint32(raw[:4])) != headerSize {
			return nil, ErrNotNIfTI
		}
		order = binary.BigEndian
	}

	var h header
	if err := binary.Read(bytes.NewReader(raw), order, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	switch {
	case bytes.Equal(h.Magic[:], []byte("n+1\x00")):
	case bytes.Equal(h.Magic[:], []byte("ni1\x00")):
		return nil, ErrDetachedImage
	default:
		return nil, ErrNotNIfTI
	}

	ndim := int(h.Dim[0])
	if ndim < 1 || ndim > 7 {
		return nil, ErrNotNIfTI
	}
	var dims [3]int
	for i := 0; i < 3; i++ {
		dims[i] = 1
		if i < ndim {
			d := int(h.Dim[i+1])
			if d < 1 {
				return nil, fmt.Errorf("nifti: dimension %d has size %d", i+1, d)
			}
			dims[i] = d
		}
	}
	for i := 3; i < ndim; i++ {
		if h.Dim[i+1] > 1 {
			return nil, &UnsupportedDimError{Axis: i + 1, Size: int(h.Dim[i+1])}
		}
	}

	bytesPer, err := bytesPerVoxel(h.Datatype)
	if err != nil {
		return nil, err
	}

	if offset := int64(h.VoxOffset); offset > headerSize {
		if _, err := io.CopyN(io.Discard, r, offset-headerSize); err != nil {
			return nil, fmt.Errorf("skip to voxel data: %w", err)
		}
	}

	n := dims[0] * dims[1] * dims[2]
	buf := make([]byte, n*bytesPer)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read voxel data: %w", err)
	}

	data := decodeVoxels(buf, h.Datatype, order, n)
	applyScaling(data, h.SclSlope, h.SclInter)

	return &Volume{Dims: dims, Data: data}, nil
}

func bytesPerVoxel(datatype int16) (int, error) {
	switch datatype {
	case typeUint8:
		return 1, nil
	case typeInt16:
		return 2, nil
	case typeInt32, typeFloat32:
		return 4, nil
	case typeFloat64:
		return 8, nil
	default:
		return 0, &UnsupportedDataTypeError{Code: datatype}
	}
}

func decodeVoxels(buf []byte, datatype int16, order binary.ByteOrder, n int) []float64 {
	data := make([]float64, n)
	switch datatype {
	case typeUint8:
		for i := 0; i < n; i++ {
			data[i] = float64(buf[i])
		}
	case typeInt16:
		for i := 0; i < n; i++ {
			data[i] = float64(int16(order.Uint16(buf[i*2:])))
		}
	case typeInt32:
		for i := 0; i < n; i++ {
			data[i] = float64(int32(order.Uint32(buf[i*4:])))
		}
	case typeFloat32:
		for i := 0; i < n; i++ {
			data[i] = float64(math.Float32frombits(order.Uint32(buf[i*4:])))
		}
	case typeFloat64:
		for i := 0; i < n; i++ {
			data[i] = math.Float64frombits(order.Uint64(buf[i*8:]))
		}
	}
	return data
}

// applyScaling applies the slope/intercept transform. A zero or NaN
// slope means unscaled data per the NIfTI-1 standard.
func applyScaling(data []float64, slope, inter float32) {
	s, b := float64(slope), float64(inter)
	if s == 0 || math.IsNaN(s) || (s == 1 && b == 0) {
		return
	}
	for i := range data {
		data[i] = data[i]*s + b
	}
}

// Save writes a volume to a .nii or .nii.gz file.
func Save(path string, v *Volume) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("nifti: create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 256*1024)
	var w io.Writer = bw

	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(bw)
		w = gz
	}

	if err := Write(w, v); err != nil {
		return fmt.Errorf("nifti: write %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("nifti: flush gzip %s: %w", path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("nifti: flush %s: %w", path, err)
	}
	return f.Close()
}

// Write encodes the volume as a little-endian float64 single-file
// NIfTI-1 image.
func Write(w io.Writer, v *Volume) error {
	h := header{
		SizeofHdr: headerSize,
		Dim:       [8]int16{3, int16(v.Dims[0]), int16(v.Dims[1]), int16(v.Dims[2]), 1, 1, 1, 1},
		Datatype:  typeFloat64,
		Bitpix:    64,
		Pixdim:    [8]float32{1, 1, 1, 1, 1, 1, 1, 1},
		VoxOffset: headerSize + 4,
		SclSlope:  1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}

	if want := v.Dims[0] * v.Dims[1] * v.Dims[2]; want != len(v.Data) {
		return fmt.Errorf("nifti: dims %v want %d voxels, have %d", v.Dims, want, len(v.Data))
	}

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	// No header extensions.
	if _, err := w.Write([]byte{0, 0, 0, 0}); err != nil {
		return fmt.Errorf("write extension flag: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, v.Data); err != nil {
		return fmt.Errorf("write voxel data: %w", err)
	}
	return nil
}
