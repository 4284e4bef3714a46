package persist

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"unsafe"
)

// binaryWriter writes model sections in optimized binary form.
type binaryWriter struct {
	w         io.Writer
	byteOrder binary.ByteOrder
}

func newBinaryWriter(w io.Writer) *binaryWriter {
	return &binaryWriter{
		w:         w,
		byteOrder: binary.LittleEndian, // Native on x86/ARM
	}
}

func (bw *binaryWriter) WriteU8(v uint8) error {
	_, err := bw.w.Write([]byte{v})
	return err
}

func (bw *binaryWriter) WriteU32(v uint32) error {
	var buf [4]byte
	bw.byteOrder.PutUint32(buf[:], v)
	_, err := bw.w.Write(buf[:])
	return err
}

func (bw *binaryWriter) WriteU64(v uint64) error {
	var buf [8]byte
	bw.byteOrder.PutUint64(buf[:], v)
	_, err := bw.w.Write(buf[:])
	return err
}

func (bw *binaryWriter) WriteF32(v float32) error {
	return bw.WriteU32(math.Float32bits(v))
}

// WriteFloat32Slice writes a float32 slice as raw bytes (zero-copy).
func (bw *binaryWriter) WriteFloat32Slice(vec []float32) error {
	if len(vec) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// WriteUint32Slice writes a uint32 slice as raw bytes (zero-copy).
func (bw *binaryWriter) WriteUint32Slice(slice []uint32) error {
	if len(slice) == 0 {
		return nil
	}
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), len(slice)*4)
	_, err := bw.w.Write(byteSlice)
	return err
}

// binaryReader reads model sections from binary form.
type binaryReader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
}

func newBinaryReader(r io.Reader) *binaryReader {
	return &binaryReader{
		r:         r,
		byteOrder: binary.LittleEndian,
	}
}

func (br *binaryReader) ReadU8() (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (br *binaryReader) ReadU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return br.byteOrder.Uint32(buf[:]), nil
}

func (br *binaryReader) ReadU64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(br.r, buf[:]); err != nil {
		return 0, err
	}
	return br.byteOrder.Uint64(buf[:]), nil
}

func (br *binaryReader) ReadF32() (float32, error) {
	v, err := br.ReadU32()
	return math.Float32frombits(v), err
}

// ReadFloat32Slice reads a float32 slice written by WriteFloat32Slice.
func (br *binaryReader) ReadFloat32Slice(count int) ([]float32, error) {
	if count == 0 {
		return nil, nil
	}
	vec := make([]float32, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), count*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return vec, nil
}

// ReadUint32Slice reads a uint32 slice written by WriteUint32Slice.
func (br *binaryReader) ReadUint32Slice(count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	slice := make([]uint32, count)
	byteSlice := unsafe.Slice((*byte)(unsafe.Pointer(&slice[0])), count*4)
	if _, err := io.ReadFull(br.r, byteSlice); err != nil {
		return nil, err
	}
	return slice, nil
}

// SaveToFile writes a model file atomically: the content goes to a temp
// file in the target directory which is then renamed over the target.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}

// LoadFromFile opens a model file for buffered reading.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := bufio.NewReaderSize(f, 256*1024)
	return readFunc(buf)
}
