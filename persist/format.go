// Package persist encodes and decodes trained models in a binary
// container: a fixed header, followed by a checksummed (optionally
// compressed) payload holding the metadata and tree hierarchy. The
// round-trip is lossless: weight bit patterns are preserved exactly, so
// a reloaded model scores bit-identically to the original.
package persist

import "errors"

const (
	// MagicNumber identifies model files (ASCII: "OMKT").
	MagicNumber = 0x4F4D4B54
	// Version is the current file format version (v1.0.0).
	Version = 0x00010000

	// Node tags.
	tagInternal = 0
	tagLeaf     = 1

	// Classifier storage forms.
	formSparse = 0
	formDense  = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrInvalidCodec   = errors.New("unknown compression codec")
	ErrChecksum       = errors.New("checksum mismatch")
	ErrTruncated      = errors.New("truncated model file")
	ErrCorrupt        = errors.New("corrupt model structure")
)

// FileHeader is the fixed-size header at the start of every model file.
// Written uncompressed; everything after it is the payload.
type FileHeader struct {
	Magic      uint32
	Version    uint32
	Codec      uint8
	Padding    [3]byte
	PayloadLen uint64 // Compressed payload size in bytes
	Checksum   uint32 // CRC32 (IEEE) of the compressed payload
	Reserved   [12]byte
}

// Metadata records the dimensions and training hyperparameters of a
// model, sufficient to validate a loaded model against future queries.
// Part of the checksummed payload.
type Metadata struct {
	NFeatures         uint32
	NLabels           uint32
	NTrees            uint32
	MaxLeafSize       uint32
	ClusterEps        float32
	ClusterMaxIter    uint32
	CentroidThreshold float32
	Loss              uint8
	Padding           [3]byte
	C                 float32
	Eps               float32
	MaxIter           uint32
	WeightThreshold   float32
	MaxSparseDensity  float32
	Seed              int64
}
