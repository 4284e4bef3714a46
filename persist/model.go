package persist

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/baajur/omikuji/linear"
	"github.com/baajur/omikuji/sparse"
	"github.com/baajur/omikuji/tree"
)

// Save encodes metadata and trees into the binary container and writes
// it to w. The payload is compressed with the given codec and protected
// by a CRC32 checksum in the header.
func Save(w io.Writer, meta Metadata, trees []*tree.Tree, codec Codec) error {
	if len(trees) != int(meta.NTrees) {
		return fmt.Errorf("%w: metadata declares %d trees, got %d", ErrCorrupt, meta.NTrees, len(trees))
	}

	var payload bytes.Buffer
	bw := newBinaryWriter(&payload)
	if err := encodeMetadata(bw, meta); err != nil {
		return err
	}
	for _, t := range trees {
		if t == nil || t.Root == nil {
			return fmt.Errorf("%w: nil tree", ErrCorrupt)
		}
		if err := encodeNode(bw, t.Root); err != nil {
			return err
		}
	}

	compressed, err := codec.compress(payload.Bytes())
	if err != nil {
		return err
	}

	hw := newBinaryWriter(w)
	if err := hw.WriteU32(MagicNumber); err != nil {
		return err
	}
	if err := hw.WriteU32(Version); err != nil {
		return err
	}
	if err := hw.WriteU8(uint8(codec)); err != nil {
		return err
	}
	if _, err := w.Write(make([]byte, 3)); err != nil {
		return err
	}
	if err := hw.WriteU64(uint64(len(compressed))); err != nil {
		return err
	}
	if err := hw.WriteU32(crc32.ChecksumIEEE(compressed)); err != nil {
		return err
	}
	if _, err := w.Write(make([]byte, 12)); err != nil {
		return err
	}

	_, err = w.Write(compressed)
	return err
}

// Load decodes a model written by Save. It validates the magic number,
// version, payload length and checksum before decoding, so corruption
// is reported instead of producing a silently broken model.
func Load(r io.Reader) (Metadata, []*tree.Tree, error) {
	var meta Metadata

	hr := newBinaryReader(r)
	magic, err := hr.ReadU32()
	if err != nil {
		return meta, nil, readErr(err)
	}
	if magic != MagicNumber {
		return meta, nil, ErrInvalidMagic
	}
	version, err := hr.ReadU32()
	if err != nil {
		return meta, nil, readErr(err)
	}
	if version != Version {
		return meta, nil, fmt.Errorf("%w: 0x%08X", ErrInvalidVersion, version)
	}
	codecByte, err := hr.ReadU8()
	if err != nil {
		return meta, nil, readErr(err)
	}
	codec := Codec(codecByte)
	if codec > CodecZstd {
		return meta, nil, fmt.Errorf("%w: %d", ErrInvalidCodec, codecByte)
	}
	if err := skip(r, 3); err != nil {
		return meta, nil, readErr(err)
	}
	payloadLen, err := hr.ReadU64()
	if err != nil {
		return meta, nil, readErr(err)
	}
	checksum, err := hr.ReadU32()
	if err != nil {
		return meta, nil, readErr(err)
	}
	if err := skip(r, 12); err != nil {
		return meta, nil, readErr(err)
	}

	compressed := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return meta, nil, readErr(err)
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return meta, nil, ErrChecksum
	}

	payload, err := codec.decompress(compressed)
	if err != nil {
		return meta, nil, err
	}

	br := newBinaryReader(bytes.NewReader(payload))
	meta, err = decodeMetadata(br)
	if err != nil {
		return meta, nil, readErr(err)
	}
	trees := make([]*tree.Tree, meta.NTrees)
	for i := range trees {
		root, err := decodeNode(br, meta.NLabels, meta.NFeatures+1)
		if err != nil {
			return meta, nil, err
		}
		trees[i] = &tree.Tree{Root: root}
	}
	return meta, trees, nil
}

func encodeMetadata(bw *binaryWriter, meta Metadata) error {
	fields := []error{
		bw.WriteU32(meta.NFeatures),
		bw.WriteU32(meta.NLabels),
		bw.WriteU32(meta.NTrees),
		bw.WriteU32(meta.MaxLeafSize),
		bw.WriteF32(meta.ClusterEps),
		bw.WriteU32(meta.ClusterMaxIter),
		bw.WriteF32(meta.CentroidThreshold),
		bw.WriteU8(meta.Loss),
	}
	for _, err := range fields {
		if err != nil {
			return err
		}
	}
	if _, err := bw.w.Write(make([]byte, 3)); err != nil {
		return err
	}
	fields = []error{
		bw.WriteF32(meta.C),
		bw.WriteF32(meta.Eps),
		bw.WriteU32(meta.MaxIter),
		bw.WriteF32(meta.WeightThreshold),
		bw.WriteF32(meta.MaxSparseDensity),
		bw.WriteU64(uint64(meta.Seed)),
	}
	for _, err := range fields {
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeMetadata(br *binaryReader) (Metadata, error) {
	var meta Metadata
	var err error
	read32 := func(dst *uint32) {
		if err == nil {
			*dst, err = br.ReadU32()
		}
	}
	readF := func(dst *float32) {
		if err == nil {
			*dst, err = br.ReadF32()
		}
	}
	read32(&meta.NFeatures)
	read32(&meta.NLabels)
	read32(&meta.NTrees)
	read32(&meta.MaxLeafSize)
	readF(&meta.ClusterEps)
	read32(&meta.ClusterMaxIter)
	readF(&meta.CentroidThreshold)
	if err == nil {
		meta.Loss, err = br.ReadU8()
	}
	if err == nil {
		err = skip(br.r, 3)
	}
	readF(&meta.C)
	readF(&meta.Eps)
	read32(&meta.MaxIter)
	readF(&meta.WeightThreshold)
	readF(&meta.MaxSparseDensity)
	if err == nil {
		var seed uint64
		seed, err = br.ReadU64()
		meta.Seed = int64(seed)
	}
	return meta, err
}

func encodeNode(bw *binaryWriter, n *tree.Node) error {
	if n.IsLeaf() {
		if err := bw.WriteU8(tagLeaf); err != nil {
			return err
		}
		if err := bw.WriteU32(uint32(len(n.LeafLabels))); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(n.LeafLabels); err != nil {
			return err
		}
		for i := range n.LeafClassifiers {
			if err := encodeClassifier(bw, &n.LeafClassifiers[i]); err != nil {
				return err
			}
		}
		return nil
	}

	if len(n.Children) != 2 || len(n.Routers) != 2 {
		return fmt.Errorf("%w: internal node with %d children", ErrCorrupt, len(n.Children))
	}
	if err := bw.WriteU8(tagInternal); err != nil {
		return err
	}
	for i := range n.Routers {
		if err := encodeClassifier(bw, &n.Routers[i]); err != nil {
			return err
		}
	}
	for _, child := range n.Children {
		if err := encodeNode(bw, child); err != nil {
			return err
		}
	}
	return nil
}

// decodeNode reconstructs a subtree. Labels bitmaps are not stored in
// the file; they are rebuilt bottom-up from leaf label lists.
func decodeNode(br *binaryReader, nLabels, dim uint32) (*tree.Node, error) {
	tag, err := br.ReadU8()
	if err != nil {
		return nil, readErr(err)
	}
	switch tag {
	case tagLeaf:
		count, err := br.ReadU32()
		if err != nil {
			return nil, readErr(err)
		}
		if count == 0 || count > nLabels {
			return nil, fmt.Errorf("%w: leaf with %d labels", ErrCorrupt, count)
		}
		labels, err := br.ReadUint32Slice(int(count))
		if err != nil {
			return nil, readErr(err)
		}
		for _, label := range labels {
			if label >= nLabels {
				return nil, fmt.Errorf("%w: label %d out of range", ErrCorrupt, label)
			}
		}
		classifiers := make([]linear.Classifier, count)
		for i := range classifiers {
			classifiers[i], err = decodeClassifier(br, dim)
			if err != nil {
				return nil, err
			}
		}
		return &tree.Node{
			Labels:          roaring.BitmapOf(labels...),
			LeafLabels:      labels,
			LeafClassifiers: classifiers,
		}, nil

	case tagInternal:
		routers := make([]linear.Classifier, 2)
		for i := range routers {
			routers[i], err = decodeClassifier(br, dim)
			if err != nil {
				return nil, err
			}
		}
		children := make([]*tree.Node, 2)
		labels := roaring.New()
		for i := range children {
			children[i], err = decodeNode(br, nLabels, dim)
			if err != nil {
				return nil, err
			}
			labels.Or(children[i].Labels)
		}
		return &tree.Node{
			Labels:   labels,
			Children: children,
			Routers:  routers,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown node tag %d", ErrCorrupt, tag)
	}
}

func encodeClassifier(bw *binaryWriter, c *linear.Classifier) error {
	if c.IsSparse() {
		w := c.SparseWeights()
		if err := bw.WriteU8(formSparse); err != nil {
			return err
		}
		if err := bw.WriteU32(uint32(len(w.Indices))); err != nil {
			return err
		}
		if err := bw.WriteUint32Slice(w.Indices); err != nil {
			return err
		}
		return bw.WriteFloat32Slice(w.Values)
	}

	w := c.DenseWeights()
	if err := bw.WriteU8(formDense); err != nil {
		return err
	}
	if err := bw.WriteU32(uint32(len(w))); err != nil {
		return err
	}
	return bw.WriteFloat32Slice(w)
}

func decodeClassifier(br *binaryReader, dim uint32) (linear.Classifier, error) {
	form, err := br.ReadU8()
	if err != nil {
		return linear.Classifier{}, readErr(err)
	}
	count, err := br.ReadU32()
	if err != nil {
		return linear.Classifier{}, readErr(err)
	}
	if count > dim {
		return linear.Classifier{}, fmt.Errorf("%w: classifier with %d weights, dim %d", ErrCorrupt, count, dim)
	}
	switch form {
	case formSparse:
		indices, err := br.ReadUint32Slice(int(count))
		if err != nil {
			return linear.Classifier{}, readErr(err)
		}
		values, err := br.ReadFloat32Slice(int(count))
		if err != nil {
			return linear.Classifier{}, readErr(err)
		}
		return linear.NewSparse(sparse.Vector{Indices: indices, Values: values}), nil
	case formDense:
		values, err := br.ReadFloat32Slice(int(count))
		if err != nil {
			return linear.Classifier{}, readErr(err)
		}
		return linear.NewDense(values), nil
	default:
		return linear.Classifier{}, fmt.Errorf("%w: unknown classifier form %d", ErrCorrupt, form)
	}
}

// readErr maps EOF conditions to ErrTruncated so callers see a single
// sentinel for short files.
func readErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

func skip(r io.Reader, n int) error {
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	return err
}
