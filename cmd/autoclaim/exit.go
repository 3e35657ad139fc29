package main

import (
	"errors"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/pipeline/steps"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Process exit codes
const (
	exitOK         = 0
	exitFailure    = 1
	exitConfig     = 2
	exitValidation = 3
	exitStorage    = 4
	exitRejected   = 5
)

// exitCode maps an error returned by a command to the process exit code.
// The most specific cause wins: a validation failure wrapped in a stage error still exits with 3.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var (
		failure  *types.ValidationFailure
		rejected *types.PromotionRejected
		cfgErr   *config.ConfigurationError
		unknown  *steps.UnknownStageError
		storage  *types.StorageError
	)
	switch {
	case errors.As(err, &failure):
		return exitValidation
	case errors.As(err, &rejected):
		return exitRejected
	case errors.As(err, &cfgErr), errors.As(err, &unknown):
		return exitConfig
	case errors.As(err, &storage):
		return exitStorage
	}
	return exitFailure
}
