package types

import "fmt"

// UpstreamDataError means a declared input artifact is missing or unreadable
type UpstreamDataError struct {
	Stage   string
	Input   string
	Message string
	Cause   error
}

func (e *UpstreamDataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream data error in %s (input %s): %s: %v", e.Stage, e.Input, e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream data error in %s (input %s): %s", e.Stage, e.Input, e.Message)
}

func (e *UpstreamDataError) Unwrap() error {
	return e.Cause
}

// ComputeError means a stage body failed during its core computation
type ComputeError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *ComputeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compute error in %s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("compute error in %s: %s", e.Stage, e.Message)
}

func (e *ComputeError) Unwrap() error {
	return e.Cause
}

// StorageError means an artifact store or model registry operation failed
type StorageError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StorageError) Error() string {
	target := e.Op
	if e.Key != "" {
		target += " " + e.Key
	}
	if e.Cause != nil {
		return fmt.Sprintf("storage error: %s: %v", target, e.Cause)
	}
	return "storage error: " + target
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ValidationFailure is the hard gate raised when the validation artifact has status=false.
// The validation stage itself succeeded; downstream stages must not run.
type ValidationFailure struct {
	Message    string
	ReportPath string
}

func (e *ValidationFailure) Error() string {
	if e.Message == "" {
		return "data validation failed"
	}
	return fmt.Sprintf("data validation failed: %s", e.Message)
}

// PromotionRejected is returned when push is requested for a model the evaluation did not accept
type PromotionRejected struct {
	ChallengerScore float64
	ChampionScore   *float64
}

func (e *PromotionRejected) Error() string {
	if e.ChampionScore == nil {
		return fmt.Sprintf("push refused: challenger score %.4f was not accepted", e.ChallengerScore)
	}
	return fmt.Sprintf("push refused: challenger score %.4f does not beat champion score %.4f",
		e.ChallengerScore, *e.ChampionScore)
}
