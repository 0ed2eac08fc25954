package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error taxonomy for the analysis pipeline
var (
	// Configuration errors abort before any computation starts
	ErrConfiguration     = errors.New("invalid analysis configuration")
	ErrSampleMismatch    = fmt.Errorf("%w: sample count mismatch between paired vectors", ErrConfiguration)
	ErrTooFewSamples     = fmt.Errorf("%w: degrees of freedom must be positive", ErrConfiguration)
	ErrUnknownMethod     = fmt.Errorf("%w: unknown correlation method", ErrConfiguration)
	ErrUnknownAdjustment = fmt.Errorf("%w: unknown adjustment method", ErrConfiguration)
	ErrDatasetSizes      = fmt.Errorf("%w: matched pairing requires equal dataset sizes", ErrConfiguration)

	// Computation errors mean a strategy cannot produce a defined statistic
	ErrComputation  = errors.New("correlation computation failed")
	ErrZeroVariance = fmt.Errorf("%w: zero-variance input vector", ErrComputation)

	// Resource errors cover spill storage and serialization failures;
	// partial sorted output cannot be trusted, so they are always fatal
	ErrResource = errors.New("spill storage failure")
)

// Error constructors with context
func NewConfigurationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, reason)
}

func NewSampleMismatchError(id string, got, want int) error {
	return fmt.Errorf("%w: vector %q has %d samples, expected %d", ErrSampleMismatch, id, got, want)
}

func NewComputationError(geneID, gemID string, err error) error {
	return fmt.Errorf("%w for pair (%s, %s): %v", ErrComputation, geneID, gemID, err)
}

func NewZeroVarianceError(id string) error {
	return fmt.Errorf("%w: %q", ErrZeroVariance, id)
}

func NewResourceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrResource, op, err)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsComputationError(err error) bool {
	return errors.Is(err, ErrComputation)
}

func IsResourceError(err error) bool {
	return errors.Is(err, ErrResource)
}
