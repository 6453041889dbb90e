package inference

import (
	"context"
	"fmt"
	"io"
)

// Label is the verdict produced for one chest X-ray.
type Label string

const (
	LabelNormal    Label = "Normal"
	LabelPneumonia Label = "Pneumonia Likely"
)

// Result is the outcome of classifying one image.
type Result struct {
	Label      Label
	Confidence float64 // positive-class probability in [0,1]
}

// Classifier maps raw image bytes to a verdict. The network behind it is a
// black box; implementations must be deterministic for a fixed input.
type Classifier interface {
	Classify(ctx context.Context, r io.Reader) (Result, error)
}

// Verdict applies the decision threshold: a positive-class probability at or
// above 0.5 reads as pneumonia.
func Verdict(positiveProb float64) Label {
	if positiveProb >= 0.5 {
		return LabelPneumonia
	}
	return LabelNormal
}

// AnalysisString renders a result the way reports store it, e.g.
// "Pneumonia Likely (Confidence: 0.87)".
func AnalysisString(res Result) string {
	return fmt.Sprintf("%s (Confidence: %.2f)", res.Label, res.Confidence)
}

// ErrorString renders a failed analysis. Failures are recorded on the report
// rather than failing the upload, so the caller always gets a row back.
func ErrorString(err error) string {
	return fmt.Sprintf("Error analyzing image: %v", err)
}
