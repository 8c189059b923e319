// Package recommend blends the collaborative similarity signal and the
// content-based structural bias signal into one ranked, normalized
// recommendation list.
package recommend

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// BlendWeights defines how the two recommendation signals are combined.
type BlendWeights struct {
	Collaborative float64 `json:"collaborative"` // Weight for similar-viewer ratings (default: 0.6)
	Content       float64 `json:"content"`       // Weight for the viewer's own tag agreement (default: 0.4)
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string       `json:"version"` // Config version for future compatibility
	Weights BlendWeights `json:"weights"` // Weight configuration
}

// DefaultBlendWeights returns the default blend configuration:
// final = (collaborative * 0.6) + (content * 0.4).
func DefaultBlendWeights() *BlendWeights {
	return &BlendWeights{
		Collaborative: 0.6,
		Content:       0.4,
	}
}

// LoadCalibration loads blend weights from a JSON calibration file.
// If the file doesn't exist or can't be parsed, returns default weights with
// an error so the caller can degrade gracefully. Partial configurations are
// merged with defaults.
func LoadCalibration(filePath string) (*BlendWeights, error) {
	if filePath == "" {
		return DefaultBlendWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultBlendWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultBlendWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultBlendWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)
	return merged, nil
}

// MergeCalibration merges override weights with base weights. Only non-zero
// values from the override are applied, allowing partial overrides in the
// calibration file.
func MergeCalibration(base *BlendWeights, override *BlendWeights) *BlendWeights {
	if base == nil {
		return DefaultBlendWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base
	if override.Collaborative != 0 {
		result.Collaborative = override.Collaborative
	}
	if override.Content != 0 {
		result.Content = override.Content
	}
	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *BlendWeights, loaded *BlendWeights) {
	var overrides []string
	if loaded.Collaborative != defaults.Collaborative {
		overrides = append(overrides, fmt.Sprintf("collaborative: %.2f -> %.2f",
			defaults.Collaborative, loaded.Collaborative))
	}
	if loaded.Content != defaults.Content {
		overrides = append(overrides, fmt.Sprintf("content: %.2f -> %.2f",
			defaults.Content, loaded.Content))
	}

	if len(overrides) > 0 {
		slog.Info("loaded blend calibration with overrides", "overrides", overrides)
	} else {
		slog.Info("loaded blend calibration (using all defaults)")
	}
}
