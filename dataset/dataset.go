// Package dataset reads and writes the textual extreme-classification
// dataset format: a header line "n_examples n_features n_labels"
// followed by one line per example holding comma-separated label
// indices, a space, and space-separated "feature:value" pairs.
//
// Malformed input fails fast at load time with the offending line
// number; no partially loaded dataset is returned.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/baajur/omikuji/sparse"
)

// Example is one training or query instance: a sparse feature vector
// plus its set of assigned label indices. Immutable once loaded.
type Example struct {
	Features sparse.Vector
	Labels   []uint32 // sorted, unique
}

// Dataset is a fully loaded dataset.
type Dataset struct {
	NFeatures int
	NLabels   int
	Examples  []Example
}

// ParseError reports malformed input with its line number.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dataset: line %d: %s", e.Line, e.Msg)
}

func parseErrorf(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// LoadFile loads a dataset from a file.
func LoadFile(filename string) (*Dataset, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load loads a dataset from a reader.
func Load(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, parseErrorf(1, "missing header")
	}

	header := strings.Fields(scanner.Text())
	if len(header) != 3 {
		return nil, parseErrorf(1, "header must hold 3 integers, got %d fields", len(header))
	}
	nExamples, err := parseCount(header[0])
	if err != nil {
		return nil, parseErrorf(1, "bad example count %q", header[0])
	}
	nFeatures, err := parseCount(header[1])
	if err != nil {
		return nil, parseErrorf(1, "bad feature count %q", header[1])
	}
	nLabels, err := parseCount(header[2])
	if err != nil {
		return nil, parseErrorf(1, "bad label count %q", header[2])
	}

	ds := &Dataset{
		NFeatures: nFeatures,
		NLabels:   nLabels,
		Examples:  make([]Example, 0, nExamples),
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		ex, err := parseExample(line, lineNo, nFeatures, nLabels)
		if err != nil {
			return nil, err
		}
		ds.Examples = append(ds.Examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(ds.Examples) != nExamples {
		return nil, parseErrorf(lineNo, "header promises %d examples, got %d", nExamples, len(ds.Examples))
	}

	return ds, nil
}

func parseExample(line string, lineNo, nFeatures, nLabels int) (Example, error) {
	labelPart := line
	featurePart := ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		labelPart = line[:i]
		featurePart = line[i+1:]
	}

	var ex Example

	if labelPart != "" {
		for _, tok := range strings.Split(labelPart, ",") {
			label, err := strconv.ParseUint(tok, 10, 32)
			if err != nil {
				return Example{}, parseErrorf(lineNo, "bad label index %q", tok)
			}
			if label >= uint64(nLabels) {
				return Example{}, parseErrorf(lineNo, "label index %d out of range [0,%d)", label, nLabels)
			}
			ex.Labels = append(ex.Labels, uint32(label))
		}
		sort.Slice(ex.Labels, func(i, j int) bool { return ex.Labels[i] < ex.Labels[j] })
		ex.Labels = dedupe(ex.Labels)
	}

	if featurePart != "" {
		type pair struct {
			idx uint32
			val float32
		}
		var pairs []pair
		for _, tok := range strings.Fields(featurePart) {
			colon := strings.IndexByte(tok, ':')
			if colon < 0 {
				return Example{}, parseErrorf(lineNo, "feature pair %q missing ':'", tok)
			}
			idx, err := strconv.ParseUint(tok[:colon], 10, 32)
			if err != nil {
				return Example{}, parseErrorf(lineNo, "bad feature index %q", tok[:colon])
			}
			if idx >= uint64(nFeatures) {
				return Example{}, parseErrorf(lineNo, "feature index %d out of range [0,%d)", idx, nFeatures)
			}
			val, err := strconv.ParseFloat(tok[colon+1:], 32)
			if err != nil {
				return Example{}, parseErrorf(lineNo, "bad feature value %q", tok[colon+1:])
			}
			pairs = append(pairs, pair{idx: uint32(idx), val: float32(val)})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].idx < pairs[j].idx })
		ex.Features.Indices = make([]uint32, 0, len(pairs))
		ex.Features.Values = make([]float32, 0, len(pairs))
		for i, p := range pairs {
			if i > 0 && pairs[i-1].idx == p.idx {
				return Example{}, parseErrorf(lineNo, "duplicate feature index %d", p.idx)
			}
			ex.Features.Indices = append(ex.Features.Indices, p.idx)
			ex.Features.Values = append(ex.Features.Values, p.val)
		}
	}

	return ex, nil
}

func dedupe(sorted []uint32) []uint32 {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || sorted[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}

func parseCount(s string) (int, error) {
	v, err := strconv.ParseUint(s, 10, 31)
	return int(v), err
}

// Save writes the dataset in the textual format.
func Save(w io.Writer, ds *Dataset) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d %d\n", len(ds.Examples), ds.NFeatures, ds.NLabels); err != nil {
		return err
	}
	for _, ex := range ds.Examples {
		for i, label := range ex.Labels {
			if i > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(strconv.FormatUint(uint64(label), 10)); err != nil {
				return err
			}
		}
		for i, idx := range ex.Features.Indices {
			if _, err := fmt.Fprintf(bw, " %d:%s", idx,
				strconv.FormatFloat(float64(ex.Features.Values[i]), 'g', -1, 32)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
