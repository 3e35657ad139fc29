// Package steps provides stage definitions, dependency resolution, and stage identity
// fingerprints for the training pipeline.
package steps

import (
	"fmt"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Stage categories
const (
	CategoryData    = "data"
	CategoryModel   = "model"
	CategoryRelease = "release"
)

// StageDefinition defines metadata for a pipeline stage
type StageDefinition struct {
	Name         string
	Category     string
	Dependencies []string
}

// Order is the fixed topological order of the chain
var Order = []string{
	types.StageIngestion,
	types.StageValidation,
	types.StageTransformation,
	types.StageTraining,
	types.StageEvaluation,
	types.StagePush,
}

// StageRegistry holds all stage definitions
var StageRegistry = map[string]StageDefinition{
	types.StageIngestion: {
		Name:         types.StageIngestion,
		Category:     CategoryData,
		Dependencies: []string{},
	},
	types.StageValidation: {
		Name:         types.StageValidation,
		Category:     CategoryData,
		Dependencies: []string{types.StageIngestion},
	},
	types.StageTransformation: {
		Name:         types.StageTransformation,
		Category:     CategoryData,
		Dependencies: []string{types.StageIngestion, types.StageValidation},
	},
	types.StageTraining: {
		Name:         types.StageTraining,
		Category:     CategoryModel,
		Dependencies: []string{types.StageTransformation},
	},
	types.StageEvaluation: {
		Name:         types.StageEvaluation,
		Category:     CategoryModel,
		Dependencies: []string{types.StageIngestion, types.StageTraining},
	},
	types.StagePush: {
		Name:         types.StagePush,
		Category:     CategoryRelease,
		Dependencies: []string{types.StageEvaluation},
	},
}

// UnknownStageError is returned for a stage name outside the registry
type UnknownStageError struct {
	Name string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage: %q (expected one of %v or %q)", e.Name, Order, types.StageAll)
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Stage               string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing dependencies: %v", e.Stage, e.MissingDependencies)
}

// ValidateStage checks a requested target name, accepting "all"
func ValidateStage(name string) error {
	if name == types.StageAll {
		return nil
	}
	if _, ok := StageRegistry[name]; !ok {
		return &UnknownStageError{Name: name}
	}
	return nil
}

// Plan returns the stages needed to produce target, in execution order.
// For "all" it is the whole chain.
func Plan(target string) ([]string, error) {
	if err := ValidateStage(target); err != nil {
		return nil, err
	}
	if target == types.StageAll {
		out := make([]string, len(Order))
		copy(out, Order)
		return out, nil
	}

	needed := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if needed[name] {
			return
		}
		needed[name] = true
		for _, dep := range StageRegistry[name].Dependencies {
			visit(dep)
		}
	}
	visit(target)

	var plan []string
	for _, name := range Order {
		if needed[name] {
			plan = append(plan, name)
		}
	}
	return plan, nil
}

// ValidateDependencies checks that every dependency of a stage has been resolved
func ValidateDependencies(stageName string, resolved map[string]bool) error {
	def, ok := StageRegistry[stageName]
	if !ok {
		return &UnknownStageError{Name: stageName}
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !resolved[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{
			Stage:               stageName,
			MissingDependencies: missing,
		}
	}
	return nil
}
