package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/image/draw"
	"gopkg.in/yaml.v3"

	// Decoders for the formats scans arrive in.
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"bioscan/internal/config"
)

// Manifest describes the pretrained network the extractor runs. It is loaded
// once at startup; the weights themselves never enter this process.
type Manifest struct {
	InputSize     int      `yaml:"input_size"`
	PositiveIndex int      `yaml:"positive_index"`
	Labels        []string `yaml:"labels"`
}

// extractorJSON is the output schema of the classifier command.
type extractorJSON struct {
	Probabilities []float64 `json:"probabilities"`
}

// Engine classifies scans by pre-scaling them in-process and handing the
// result to an external extractor command that runs the pretrained network
// and emits class probabilities as JSON.
type Engine struct {
	cmdPath  string
	manifest Manifest
}

// NewEngine resolves the extractor binary and loads the model manifest. It is
// called once per process; the returned Engine is shared by all requests.
func NewEngine(cfg *config.Config) (*Engine, error) {
	path, err := exec.LookPath(cfg.Model.ExtractorPath)
	if err != nil {
		return nil, fmt.Errorf("classifier extractor not found: %w", err)
	}

	manifest := Manifest{InputSize: 224, PositiveIndex: 1}
	if cfg.Model.ManifestPath != "" {
		data, err := os.ReadFile(cfg.Model.ManifestPath)
		if err == nil {
			if err := yaml.Unmarshal(data, &manifest); err != nil {
				return nil, fmt.Errorf("parse model manifest: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read model manifest: %w", err)
		}
	}
	if manifest.InputSize <= 0 {
		manifest.InputSize = 224
	}

	log.Printf("🧠 Classifier ready (%s, input %dx%d)", filepath.Base(path), manifest.InputSize, manifest.InputSize)
	return &Engine{cmdPath: path, manifest: manifest}, nil
}

func (e *Engine) Classify(ctx context.Context, r io.Reader) (Result, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	// 1. Pre-scale to the network's input size so the extractor never sees
	// oversized or oddly-shaped scans.
	scaled := e.preprocess(img)

	tmp, err := os.CreateTemp("", "bioscan-scan-*.png")
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, scaled); err != nil {
		tmp.Close()
		return Result{}, fmt.Errorf("encode scan: %w", err)
	}
	tmp.Close()

	// 2. Run the extractor on the pre-scaled scan.
	jsonPath := tmp.Name() + ".json"
	defer os.Remove(jsonPath)

	cmd := exec.CommandContext(ctx, e.cmdPath, tmp.Name(), jsonPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("❌ Classifier failed: %v | %s", err, string(out))
		return Result{}, fmt.Errorf("classifier failed")
	}

	// 3. Read the generated JSON
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Result{}, fmt.Errorf("read classifier output: %w", err)
	}

	var raw extractorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("parse classifier output: %w", err)
	}
	if e.manifest.PositiveIndex >= len(raw.Probabilities) {
		return Result{}, fmt.Errorf("classifier output missing class %d", e.manifest.PositiveIndex)
	}

	p := raw.Probabilities[e.manifest.PositiveIndex]
	return Result{Label: Verdict(p), Confidence: p}, nil
}

// preprocess converts the scan to RGB at the network input size.
func (e *Engine) preprocess(img image.Image) *image.NRGBA {
	size := e.manifest.InputSize
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
