package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/parcelcorr/codec"
	"github.com/hupe1980/parcelcorr/model"
	"github.com/hupe1980/parcelcorr/similarity"
	"github.com/hupe1980/parcelcorr/store"
)

// Options configure snapshot writing.
type Options struct {
	// Codec marshals the store layout and results sections. Defaults
	// to codec.Default. The codec name is embedded in the header so
	// readers can decode without prior agreement.
	Codec codec.Codec

	// Compression is applied to the voxel payload section.
	Compression Compression
}

// Snapshot is the in-memory form of a snapshot file: the record store
// and, when the file carries one, the similarity results computed
// from it.
type Snapshot struct {
	Store   *store.Store
	Results *similarity.Results
}

// Store layout section. Offsets index into the voxel payload in
// float64 elements, not bytes.
type storeLayout struct {
	Contrasts []contrastLayout `json:"contrasts"`
}

type contrastLayout struct {
	Name    string         `json:"name"`
	Parcels []parcelLayout `json:"parcels"`
}

type parcelLayout struct {
	Name     string         `json:"name"`
	VoxelLen int            `json:"voxel_len"`
	Records  []recordLayout `json:"records"`
}

type recordLayout struct {
	Subject string  `json:"subject"`
	Session string  `json:"session"`
	Run     string  `json:"run"`
	Mean    float64 `json:"mean"`
	Offset  uint64  `json:"offset"`
}

// Results section. The grand means are stored alongside the maps so
// the file is self-describing; they are recomputed, not trusted, when
// results are loaded back into an analysis.
type resultsSection struct {
	similarity.Results

	MeanWithin  *float64 `json:"mean_within_subject_similarity,omitempty"`
	MeanBetween *float64 `json:"mean_between_subject_similarity,omitempty"`
}

type sectionEntry struct {
	Type     uint16
	Checksum uint32
	Offset   uint64
	Len      uint64
}

// Write writes a snapshot of st, and res when non-nil, to w.
//
// Layout:
//  1. header (magic, version, compression, codec name)
//  2. store layout (codec marshaled)
//  3. voxel payload (float64 LE, compressed)
//  4. results (codec marshaled, optional)
//  5. directory (type/checksum/offset/length per section)
//  6. footer (directory offset/length)
func Write(w io.Writer, st *store.Store, res *similarity.Results, optFns ...func(o *Options)) error {
	if w == nil {
		return fmt.Errorf("persistence: writer is nil")
	}
	if st == nil {
		return fmt.Errorf("persistence: store is nil")
	}

	opts := Options{
		Compression: DefaultCompression,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := opts.Codec
	if c == nil {
		c = codec.Default
	}

	codecName := c.Name()
	if len(codecName) > 0xFFFF {
		return fmt.Errorf("persistence: codec name too long: %d", len(codecName))
	}

	sectionCount := uint16(2)
	if res != nil {
		sectionCount = 3
	}

	// Header (16 bytes + codec name)
	// [0:4]   magic
	// [4:6]   version
	// [6]     compression
	// [7]     reserved
	// [8:10]  codec name len
	// [10:12] section count
	// [12:16] reserved
	var hdr [16]byte
	copy(hdr[0:4], snapshotMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], snapshotFormatVersion)
	hdr[6] = byte(opts.Compression)
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(len(codecName)))
	binary.LittleEndian.PutUint16(hdr[10:12], sectionCount)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte(codecName)); err != nil {
		return err
	}

	cw := &countingWriter{w: w, n: int64(len(hdr)) + int64(len(codecName))}

	layout, payload := buildStoreSections(st)

	// Store layout: codec marshaled with checksum.
	layoutBytes, err := c.Marshal(layout)
	if err != nil {
		return fmt.Errorf("persistence: encode store layout: %w", err)
	}
	layoutEntry := sectionEntry{Type: sectionStore, Offset: uint64(cw.n), Len: uint64(len(layoutBytes)), Checksum: ComputeChecksum(layoutBytes)}
	if _, err := cw.Write(layoutBytes); err != nil {
		return err
	}

	// Voxel payload: envelope compressed with checksum.
	voxelBytes, err := compressPayload(payload, opts.Compression)
	if err != nil {
		return err
	}
	voxelEntry := sectionEntry{Type: sectionVoxels, Offset: uint64(cw.n), Len: uint64(len(voxelBytes)), Checksum: ComputeChecksum(voxelBytes)}
	if _, err := cw.Write(voxelBytes); err != nil {
		return err
	}

	entries := []sectionEntry{layoutEntry, voxelEntry}

	if res != nil {
		rs := resultsSection{Results: *res}
		if m, ok := res.Within.Mean(); ok {
			rs.MeanWithin = &m
		}
		if m, ok := res.Between.Mean(); ok {
			rs.MeanBetween = &m
		}
		resBytes, err := c.Marshal(rs)
		if err != nil {
			return fmt.Errorf("persistence: encode results: %w", err)
		}
		entry := sectionEntry{Type: sectionResults, Offset: uint64(cw.n), Len: uint64(len(resBytes)), Checksum: ComputeChecksum(resBytes)}
		if _, err := cw.Write(resBytes); err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	dirOff := uint64(cw.n)
	if err := writeDirectory(cw, entries); err != nil {
		return err
	}
	dirLen := uint64(cw.n) - dirOff

	return writeFooter(cw, dirOff, dirLen)
}

// buildStoreSections flattens the store into its layout description
// and the concatenated voxel payload. Iteration follows the store's
// canonical order, so identical stores produce identical bytes.
func buildStoreSections(st *store.Store) (storeLayout, []byte) {
	var total int
	for _, contrast := range st.Contrasts() {
		for _, parcel := range st.Parcels(contrast) {
			for _, rec := range st.Records(contrast, parcel) {
				total += len(rec.Voxels)
			}
		}
	}

	payload := make([]byte, 8*total)
	layout := storeLayout{Contrasts: make([]contrastLayout, 0, len(st.Contrasts()))}

	var next uint64
	for _, contrast := range st.Contrasts() {
		cl := contrastLayout{Name: contrast, Parcels: make([]parcelLayout, 0, len(st.Parcels(contrast)))}
		for _, parcel := range st.Parcels(contrast) {
			records := st.Records(contrast, parcel)
			pl := parcelLayout{
				Name:     parcel,
				VoxelLen: st.ParcelLen(parcel),
				Records:  make([]recordLayout, 0, len(records)),
			}
			for _, rec := range records {
				pl.Records = append(pl.Records, recordLayout{
					Subject: rec.Subject,
					Session: rec.Session,
					Run:     rec.Run,
					Mean:    rec.Mean,
					Offset:  next,
				})
				for _, v := range rec.Voxels {
					binary.LittleEndian.PutUint64(payload[next*8:], math.Float64bits(v))
					next++
				}
			}
			cl.Parcels = append(cl.Parcels, pl)
		}
		layout.Contrasts = append(layout.Contrasts, cl)
	}

	return layout, payload
}

// Read loads a snapshot from r. The codec is chosen by the name
// embedded in the header. All returned data is freshly allocated, so
// r's backing storage (e.g. a memory mapping) may be released as soon
// as Read returns.
func Read(r io.ReadSeeker) (*Snapshot, error) {
	if r == nil {
		return nil, fmt.Errorf("persistence: reader is nil")
	}

	codecName, compression, sections, err := readDirectory(r)
	if err != nil {
		return nil, err
	}

	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("persistence: unsupported snapshot codec %q", codecName)
	}

	layoutBytes, err := readSection(r, sections, sectionStore)
	if err != nil {
		return nil, err
	}
	var layout storeLayout
	if err := c.Unmarshal(layoutBytes, &layout); err != nil {
		return nil, fmt.Errorf("persistence: decode store layout: %w", err)
	}

	voxelBytes, err := readSection(r, sections, sectionVoxels)
	if err != nil {
		return nil, err
	}
	payload, err := decompressPayload(voxelBytes, compression)
	if err != nil {
		return nil, err
	}

	st, err := rebuildStore(layout, payload)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Store: st}

	if _, ok := sections[sectionResults]; ok {
		resBytes, err := readSection(r, sections, sectionResults)
		if err != nil {
			return nil, err
		}
		var rs resultsSection
		if err := c.Unmarshal(resBytes, &rs); err != nil {
			return nil, fmt.Errorf("persistence: decode results: %w", err)
		}
		snap.Results = &rs.Results
	}

	return snap, nil
}

// rebuildStore reconstructs the record store from its layout and the
// decompressed voxel payload. Records pass through the regular
// builder, so the voxel-length invariant is re-enforced and means are
// rederived rather than trusted.
func rebuildStore(layout storeLayout, payload []byte) (*store.Store, error) {
	elems := uint64(len(payload)) / 8

	b := store.NewBuilder()
	for _, cl := range layout.Contrasts {
		for _, pl := range cl.Parcels {
			if pl.VoxelLen < 0 {
				return nil, fmt.Errorf("persistence: parcel %q has negative voxel length %d", pl.Name, pl.VoxelLen)
			}
			n := uint64(pl.VoxelLen)
			for _, rl := range pl.Records {
				if rl.Offset > elems || n > elems-rl.Offset {
					return nil, fmt.Errorf("persistence: record %s_%s_%s voxels [%d:%d) outside payload of %d elements",
						rl.Subject, rl.Session, rl.Run, rl.Offset, rl.Offset+n, elems)
				}
				voxels := make([]float64, pl.VoxelLen)
				for i := range voxels {
					bits := binary.LittleEndian.Uint64(payload[(rl.Offset+uint64(i))*8:])
					voxels[i] = math.Float64frombits(bits)
				}
				rec := model.Record{
					Subject: rl.Subject,
					Session: rl.Session,
					Run:     rl.Run,
					Voxels:  voxels,
				}
				if err := b.Add(cl.Name, pl.Name, rec); err != nil {
					return nil, fmt.Errorf("persistence: rebuild store: %w", err)
				}
			}
		}
	}

	return b.Build(), nil
}

// readSection reads and checksum-verifies one section's bytes.
func readSection(r io.ReadSeeker, sections map[uint16]sectionEntry, typ uint16) ([]byte, error) {
	entry, ok := sections[typ]
	if !ok {
		return nil, fmt.Errorf("persistence: snapshot missing section %d", typ)
	}
	if _, err := r.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, entry.Len)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("persistence: read section %d: %w", typ, err)
	}
	if actual := ComputeChecksum(data); actual != entry.Checksum {
		return nil, &ChecksumMismatchError{Expected: entry.Checksum, Actual: actual}
	}
	return data, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func writeDirectory(w io.Writer, entries []sectionEntry) error {
	// Directory header (12 bytes)
	// [0:4]  magic
	// [4:6]  version
	// [6:8]  reserved
	// [8:12] entry count
	var hdr [12]byte
	copy(hdr[0:4], snapshotDirMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], snapshotFormatVersion)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(entries)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	// Each entry is 32 bytes.
	// [0:2]   type
	// [2:4]   reserved
	// [4:8]   checksum (CRC32)
	// [8:16]  offset
	// [16:24] length
	// [24:32] reserved
	for _, e := range entries {
		var b [32]byte
		binary.LittleEndian.PutUint16(b[0:2], e.Type)
		binary.LittleEndian.PutUint32(b[4:8], e.Checksum)
		binary.LittleEndian.PutUint64(b[8:16], e.Offset)
		binary.LittleEndian.PutUint64(b[16:24], e.Len)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func writeFooter(w io.Writer, dirOffset, dirLen uint64) error {
	// Footer (24 bytes)
	// [0:4]   magic
	// [4:6]   version
	// [6:8]   reserved
	// [8:16]  directory offset
	// [16:24] directory length
	var b [24]byte
	copy(b[0:4], snapshotFooterMagic[:])
	binary.LittleEndian.PutUint16(b[4:6], snapshotFormatVersion)
	binary.LittleEndian.PutUint64(b[8:16], dirOffset)
	binary.LittleEndian.PutUint64(b[16:24], dirLen)
	_, err := w.Write(b[:])
	return err
}

func readDirectory(r io.ReadSeeker) (codecName string, compression Compression, sections map[uint16]sectionEntry, err error) {
	// Header.
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", 0, nil, err
	}
	var hdr [16]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", 0, nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	if [4]byte(hdr[0:4]) != snapshotMagic {
		return "", 0, nil, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(hdr[4:6]); ver != snapshotFormatVersion {
		return "", 0, nil, fmt.Errorf("%w: %d", ErrInvalidVersion, ver)
	}
	compression = Compression(hdr[6])
	nameLen := int(binary.LittleEndian.Uint16(hdr[8:10]))
	sectionCount := int(binary.LittleEndian.Uint16(hdr[10:12]))
	if sectionCount <= 0 {
		return "", 0, nil, fmt.Errorf("persistence: invalid section count: %d", sectionCount)
	}

	nameBytes := make([]byte, nameLen)
	if nameLen > 0 {
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return "", 0, nil, fmt.Errorf("%w: %w", ErrTruncated, err)
		}
	}
	codecName = string(nameBytes)

	// Footer (last 24 bytes).
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return "", 0, nil, err
	}
	if end < 24 {
		return "", 0, nil, ErrTruncated
	}
	if _, err := r.Seek(end-24, io.SeekStart); err != nil {
		return "", 0, nil, err
	}
	var foot [24]byte
	if _, err := io.ReadFull(r, foot[:]); err != nil {
		return "", 0, nil, err
	}
	if [4]byte(foot[0:4]) != snapshotFooterMagic {
		return "", 0, nil, fmt.Errorf("persistence: missing snapshot footer")
	}
	if fver := binary.LittleEndian.Uint16(foot[4:6]); fver != snapshotFormatVersion {
		return "", 0, nil, fmt.Errorf("%w: footer version %d", ErrInvalidVersion, fver)
	}

	const maxInt64u = uint64(^uint64(0) >> 1)
	dirOffsetU := binary.LittleEndian.Uint64(foot[8:16])
	dirLenU := binary.LittleEndian.Uint64(foot[16:24])
	if dirOffsetU > maxInt64u || dirLenU > maxInt64u {
		return "", 0, nil, fmt.Errorf("persistence: invalid directory offsets")
	}
	dataEndU := uint64(end - 24)
	if dirLenU < 12 || dirOffsetU > dataEndU || dirLenU > dataEndU-dirOffsetU {
		return "", 0, nil, fmt.Errorf("persistence: invalid directory range")
	}

	// Directory header.
	if _, err := r.Seek(int64(dirOffsetU), io.SeekStart); err != nil {
		return "", 0, nil, err
	}
	var dirHdr [12]byte
	if _, err := io.ReadFull(r, dirHdr[:]); err != nil {
		return "", 0, nil, err
	}
	if [4]byte(dirHdr[0:4]) != snapshotDirMagic {
		return "", 0, nil, fmt.Errorf("persistence: missing snapshot directory")
	}
	entryCount := int(binary.LittleEndian.Uint32(dirHdr[8:12]))
	if entryCount != sectionCount {
		return "", 0, nil, fmt.Errorf("persistence: directory holds %d entries, header says %d", entryCount, sectionCount)
	}
	if uint64(entryCount)*32 > dirLenU-12 {
		return "", 0, nil, ErrTruncated
	}

	sections = make(map[uint16]sectionEntry, entryCount)
	for i := 0; i < entryCount; i++ {
		var b [32]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", 0, nil, err
		}
		e := sectionEntry{
			Type:     binary.LittleEndian.Uint16(b[0:2]),
			Checksum: binary.LittleEndian.Uint32(b[4:8]),
			Offset:   binary.LittleEndian.Uint64(b[8:16]),
			Len:      binary.LittleEndian.Uint64(b[16:24]),
		}
		if e.Offset > maxInt64u || e.Len > maxInt64u || e.Offset > dataEndU || e.Len > dataEndU-e.Offset {
			return "", 0, nil, fmt.Errorf("persistence: section %d outside snapshot bounds", e.Type)
		}
		sections[e.Type] = e
	}

	return codecName, compression, sections, nil
}
