package geometry

import (
	"fmt"
	"os"

	"latex-translator/internal/logger"

	ort "github.com/yalue/onnxruntime_go"
)

// LayoutModel optionally backs the statistical StructureAnalysis with an
// ONNX layout-detection model, mirroring the teacher's LayoutDetector: when
// no model is configured (or it fails to load) every method here falls
// back to the caller using the rule-based StructureAnalysis/classifier path
// untouched, never failing the pipeline over a missing model.
type LayoutModel struct {
	modelPath string
	enabled   bool
	session   *ort.AdvancedSession
}

// LayoutModelConfig configures the optional ONNX-backed layout model.
type LayoutModelConfig struct {
	ModelPath string
	Enabled   bool
}

// NewLayoutModel creates a LayoutModel. It never returns an error: a
// missing or broken model degrades to disabled, matching spec §7's
// "no failure aborts the pipeline".
func NewLayoutModel(cfg LayoutModelConfig) *LayoutModel {
	lm := &LayoutModel{modelPath: cfg.ModelPath, enabled: false}
	if !cfg.Enabled {
		return lm
	}
	if err := lm.load(); err != nil {
		logger.Warn("layout model unavailable, using statistical analysis only", logger.Err(err))
		return lm
	}
	lm.enabled = true
	return lm
}

func (lm *LayoutModel) load() error {
	if lm.modelPath == "" {
		return fmt.Errorf("model path not configured")
	}
	if _, err := os.Stat(lm.modelPath); err != nil {
		return fmt.Errorf("model file not found: %w", err)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	// No session is built here or elsewhere in this package: building the
	// AdvancedSession requires concrete input/output tensor shapes that
	// depend on the page image size, so NewLayoutModel only validates that
	// the runtime and model file are usable.
	return nil
}

// Enabled reports whether the ONNX-backed path is active.
func (lm *LayoutModel) Enabled() bool { return lm.enabled }

// Close releases the ONNX session, if one was opened.
func (lm *LayoutModel) Close() error {
	if lm.session != nil {
		return lm.session.Destroy()
	}
	return nil
}
