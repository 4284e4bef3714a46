package omikuji

import (
	"errors"
	"fmt"

	"github.com/baajur/omikuji/dataset"
	"github.com/baajur/omikuji/persist"
)

var (
	// ErrEmptyDataset is returned when training data has no examples
	// or no labels.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrInvalidK is returned when the requested result count is not
	// positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidBeamSize is returned when the beam size is not positive.
	ErrInvalidBeamSize = errors.New("beam size must be positive")

	// ErrInvalidModel is returned when a model file cannot be decoded.
	ErrInvalidModel = errors.New("invalid model file")
)

// ErrInvalidHyperParam indicates a training hyperparameter outside its
// valid range.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidHyperParam struct {
	Name  string
	Value any
	cause error
}

func (e *ErrInvalidHyperParam) Error() string {
	return fmt.Sprintf("invalid hyperparameter %s: %v", e.Name, e.Value)
}

func (e *ErrInvalidHyperParam) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Model file decode failures surface as one public sentinel; the
	// precise cause stays reachable via errors.Is.
	switch {
	case errors.Is(err, persist.ErrInvalidMagic),
		errors.Is(err, persist.ErrInvalidVersion),
		errors.Is(err, persist.ErrInvalidCodec),
		errors.Is(err, persist.ErrChecksum),
		errors.Is(err, persist.ErrTruncated),
		errors.Is(err, persist.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	var pe *dataset.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("dataset: %w", err)
	}

	return err
}
