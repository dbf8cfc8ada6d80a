package dataset

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// Segment file layout (all integers little-endian):
//
//	magic       [4]byte  "HSG1"
//	version     uint8
//	flags       uint8    (reserved, zero)
//	recordCount uint32
//	3 column descriptors: rawLen uint32, compLen uint32
//	column data: ids | embeddings | documents (each zstd-compressed)
//	checksum    uint64   xxhash64 of every preceding byte
//
// Columns:
//
//	ids:        per record uint16 length + UTF-8 bytes
//	embeddings: per record uint32 dimension + dimension*float32
//	documents:  per record uint32 length + JSON of the remaining fields
//
// Segments are immutable once written; there is no in-place mutation or
// on-disk merge, so the codec has no append or patch path.

var segmentMagic = [4]byte{'H', 'S', 'G', '1'}

const (
	segmentVersion    = 1
	segmentSuffix     = ".seg"
	segmentHeaderSize = 4 + 1 + 1 + 4 + 3*8
	segmentColumns    = 3
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	// EncodeAll/DecodeAll on shared instances are safe for concurrent use.
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
}

// encodeSegment serializes one batch of records into the columnar segment
// representation.
func encodeSegment(records []Record) ([]byte, error) {
	if len(records) > math.MaxUint32 {
		return nil, fmt.Errorf("batch of %d records exceeds segment capacity", len(records))
	}

	var ids, embeddings, documents []byte
	for i := range records {
		r := &records[i]

		if len(r.ID) > math.MaxUint16 {
			return nil, fmt.Errorf("record %d: id longer than %d bytes", i, math.MaxUint16)
		}
		ids = binary.LittleEndian.AppendUint16(ids, uint16(len(r.ID)))
		ids = append(ids, r.ID...)

		embeddings = binary.LittleEndian.AppendUint32(embeddings, uint32(len(r.Embedding)))
		for _, v := range r.Embedding {
			embeddings = binary.LittleEndian.AppendUint32(embeddings, math.Float32bits(v))
		}

		doc, err := r.payload()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		documents = binary.LittleEndian.AppendUint32(documents, uint32(len(doc)))
		documents = append(documents, doc...)
	}

	buf := make([]byte, 0, segmentHeaderSize+len(ids)/2+len(embeddings)/2+len(documents)/2)
	buf = append(buf, segmentMagic[:]...)
	buf = append(buf, segmentVersion, 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(records)))

	columns := [segmentColumns][]byte{ids, embeddings, documents}
	compressed := make([][]byte, segmentColumns)
	for i, col := range columns {
		compressed[i] = zstdEncoder.EncodeAll(col, nil)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(col)))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(compressed[i])))
	}
	for _, comp := range compressed {
		buf = append(buf, comp...)
	}

	buf = binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(buf))
	return buf, nil
}

// decodeSegment parses a segment file body back into its record batch.
func decodeSegment(data []byte) ([]Record, error) {
	if len(data) < segmentHeaderSize+8 {
		return nil, fmt.Errorf("segment truncated: %d bytes", len(data))
	}

	body, sum := data[:len(data)-8], binary.LittleEndian.Uint64(data[len(data)-8:])
	if xxhash.Sum64(body) != sum {
		return nil, fmt.Errorf("segment checksum mismatch")
	}

	if [4]byte(body[:4]) != segmentMagic {
		return nil, fmt.Errorf("bad segment magic")
	}
	if body[4] != segmentVersion {
		return nil, fmt.Errorf("unsupported segment version %d", body[4])
	}
	count := int(binary.LittleEndian.Uint32(body[6:10]))

	var rawLens, compLens [segmentColumns]int
	off := 10
	for i := 0; i < segmentColumns; i++ {
		rawLens[i] = int(binary.LittleEndian.Uint32(body[off:]))
		compLens[i] = int(binary.LittleEndian.Uint32(body[off+4:]))
		off += 8
	}

	var columns [segmentColumns][]byte
	for i := 0; i < segmentColumns; i++ {
		if off+compLens[i] > len(body) {
			return nil, fmt.Errorf("segment column %d overruns file", i)
		}
		raw, err := zstdDecoder.DecodeAll(body[off:off+compLens[i]], make([]byte, 0, rawLens[i]))
		if err != nil {
			return nil, fmt.Errorf("decompress column %d: %w", i, err)
		}
		if len(raw) != rawLens[i] {
			return nil, fmt.Errorf("segment column %d: raw size %d, expected %d", i, len(raw), rawLens[i])
		}
		columns[i] = raw
		off += compLens[i]
	}

	ids, embeddings, documents := columns[0], columns[1], columns[2]
	records := make([]Record, count)
	for i := 0; i < count; i++ {
		if len(ids) < 2 {
			return nil, fmt.Errorf("id column truncated at record %d", i)
		}
		n := int(binary.LittleEndian.Uint16(ids))
		ids = ids[2:]
		if len(ids) < n {
			return nil, fmt.Errorf("id column truncated at record %d", i)
		}
		recID := string(ids[:n])
		ids = ids[n:]

		if len(embeddings) < 4 {
			return nil, fmt.Errorf("embedding column truncated at record %d", i)
		}
		dim := int(binary.LittleEndian.Uint32(embeddings))
		embeddings = embeddings[4:]
		if len(embeddings) < dim*4 {
			return nil, fmt.Errorf("embedding column truncated at record %d", i)
		}
		var vec []float32
		if dim > 0 {
			vec = make([]float32, dim)
			for j := 0; j < dim; j++ {
				vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(embeddings[j*4:]))
			}
		}
		embeddings = embeddings[dim*4:]

		if len(documents) < 4 {
			return nil, fmt.Errorf("document column truncated at record %d", i)
		}
		n = int(binary.LittleEndian.Uint32(documents))
		documents = documents[4:]
		if len(documents) < n {
			return nil, fmt.Errorf("document column truncated at record %d", i)
		}
		if err := records[i].UnmarshalJSON(documents[:n]); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		documents = documents[n:]

		records[i].ID = recID
		records[i].Embedding = vec
	}

	return records, nil
}
