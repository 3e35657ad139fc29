// Package observability provides the structured logger and the human-readable output of the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/autoclaim-ml/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
)

// Printer handles formatted output for the command surface
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines, keeping the tail where paths differ
		if len(line) > boxWidth-4 {
			line = "..." + line[len(line)-(boxWidth-7):]
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProgress prints a "Stage N/M: name" line with the resolution source
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(n, total int, stage, source string) {
	switch source {
	case "":
		fmt.Fprintf(p.out, "Stage %d/%d: %s...\n", n, total, stage)
	default:
		fmt.Fprintf(p.out, "Stage %d/%d: %s (%s)\n", n, total, stage, source)
	}
}

// PrintArtifact outputs a summary box for any stage artifact
func (p *Printer) PrintArtifact(artifact types.Artifact) {
	switch a := artifact.(type) {
	case types.IngestionArtifact:
		p.PrintIngestion(a)
	case types.ValidationArtifact:
		p.PrintValidation(a)
	case types.TransformationArtifact:
		p.PrintTransformation(a)
	case types.TrainingArtifact:
		p.PrintTraining(a)
	case types.EvaluationArtifact:
		p.PrintEvaluation(a)
	case types.PushArtifact:
		p.PrintPush(a)
	}
}

// PrintIngestion outputs where the split datasets were written.
func (p *Printer) PrintIngestion(a types.IngestionArtifact) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rows:          %d\n", a.RowCount))
	if len(a.DataHash) >= 16 {
		sb.WriteString(fmt.Sprintf("Snapshot:      %s\n", a.DataHash[:16]))
	}
	sb.WriteString(fmt.Sprintf("Feature store: %s\n", a.FeatureStorePath))
	sb.WriteString(fmt.Sprintf("Train:         %s\n", a.TrainPath))
	sb.WriteString(fmt.Sprintf("Test:          %s", a.TestPath))
	p.printBox("DATA INGESTION", sb.String())
}

// PrintValidation outputs the validation status and, on failure, every failed check.
func (p *Printer) PrintValidation(a types.ValidationArtifact) {
	var sb strings.Builder
	if a.Status {
		sb.WriteString("Status: ✓ passed\n")
	} else {
		sb.WriteString("Status: ✗ failed\n")
		for _, msg := range strings.Split(a.Message, ". ") {
			msg = strings.TrimSpace(msg)
			if msg != "" {
				sb.WriteString(fmt.Sprintf("  • %s\n", strings.TrimSuffix(msg, ".")))
			}
		}
	}
	sb.WriteString(fmt.Sprintf("Report: %s", a.ReportPath))
	p.printBox("DATA VALIDATION", sb.String())
}

func (p *Printer) PrintTransformation(a types.TransformationArtifact) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Train matrix: %s\n", a.TrainBlobPath))
	sb.WriteString(fmt.Sprintf("Test matrix:  %s\n", a.TestBlobPath))
	sb.WriteString(fmt.Sprintf("Preprocessor: %s", a.PreprocessorPath))
	p.printBox("DATA TRANSFORMATION", sb.String())
}

// PrintTraining outputs the held-out metrics of the trained model.
func (p *Printer) PrintTraining(a types.TrainingArtifact) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("F1:        %.4f\n", a.Metrics.F1))
	sb.WriteString(fmt.Sprintf("Precision: %.4f\n", a.Metrics.Precision))
	sb.WriteString(fmt.Sprintf("Recall:    %.4f\n", a.Metrics.Recall))
	sb.WriteString(fmt.Sprintf("Model:     %s", a.ModelPath))
	p.printBox("MODEL TRAINING", sb.String())
}

// PrintEvaluation outputs the champion/challenger decision.
func (p *Printer) PrintEvaluation(a types.EvaluationArtifact) {
	var sb strings.Builder
	if a.ChampionScore != nil {
		sb.WriteString(fmt.Sprintf("Champion:   %.4f\n", *a.ChampionScore))
	} else {
		sb.WriteString("Champion:   none\n")
	}
	sb.WriteString(fmt.Sprintf("Challenger: %.4f\n", a.ChallengerScore))
	sb.WriteString(fmt.Sprintf("Delta:      %+.4f\n", a.ScoreDelta))
	if a.Accepted {
		sb.WriteString("Decision:   ✓ accepted")
	} else {
		sb.WriteString("Decision:   ✗ rejected")
	}
	p.printBox("MODEL EVALUATION", sb.String())
}

func (p *Printer) PrintPush(a types.PushArtifact) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Key:      %s\n", a.ModelKey))
	sb.WriteString(fmt.Sprintf("Location: %s", a.RegistryLocation))
	p.printBox("MODEL PUSH", sb.String())
}

// PrintRunSummary outputs the ordered stage list of a run.
func (p *Printer) PrintRunSummary(run *types.PipelineRun) {
	if run == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:    %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Target: %s", run.Target))
	if run.Force {
		sb.WriteString(" (forced)")
	}
	sb.WriteString(fmt.Sprintf("\nStatus: %s\n\n", run.Status))
	for i, e := range run.Entries {
		sb.WriteString(fmt.Sprintf("%d. %-15s %-9s %6dms\n", i+1, e.Identity.Stage, e.Source, e.DurationMs))
	}
	if run.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError: %s", run.Error))
	}
	p.printBox("PIPELINE RUN", strings.TrimSuffix(sb.String(), "\n"))
}
