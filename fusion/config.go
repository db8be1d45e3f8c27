package fusion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Config holds tuning parameters of FramePipeline.
// Omitted fields fall back to defaults returned by Get* methods, so partial configs are safe.
type Config struct {
	// Lidar assignment
	ShrinkFactor *float64 `json:"shrink_factor,omitempty"`
	Workers      *int     `json:"workers,omitempty"`

	// TTC estimation
	FrameRate             *float64 `json:"frame_rate,omitempty"`
	MinKeypointSeparation *float64 `json:"min_keypoint_separation,omitempty"`

	// Region association
	MinSupport        *int    `json:"min_support,omitempty"`
	MatchingAlgorithm *string `json:"matching_algorithm,omitempty"` // "greedy" or "hungarian"

	// Tracking
	MaxNoMatch         *int     `json:"max_no_match,omitempty"`
	MaxRecoverDistance *float64 `json:"max_recover_distance,omitempty"`

	Calibration *CalibrationConfig `json:"calibration,omitempty"`
}

// CalibrationConfig is row-major calibration matrices (KITTI layout)
type CalibrationConfig struct {
	PRect []float64 `json:"p_rect"` // 3x4
	RRect []float64 `json:"r_rect"` // 3x3
	RT    []float64 `json:"rt"`     // 3x4
}

// maxConfigSize is upper bound for config file size
const maxConfigSize = 1 * 1024 * 1024

// LoadConfig loads Config from a JSON file and validates it.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("config file must have .json extension, got %q", ext)
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat config file")
	}
	if fileInfo.Size() > maxConfigSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config JSON")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks ranges of all set fields
func (cfg *Config) Validate() error {
	if cfg.ShrinkFactor != nil && (*cfg.ShrinkFactor < 0 || *cfg.ShrinkFactor >= 1) {
		return errors.Wrapf(ErrShrinkFactor, "got %f", *cfg.ShrinkFactor)
	}
	if cfg.Workers != nil && *cfg.Workers < 1 {
		return errors.Errorf("workers must be positive, got %d", *cfg.Workers)
	}
	if cfg.FrameRate != nil && *cfg.FrameRate <= 0 {
		return errors.Wrapf(ErrFrameRate, "got %f", *cfg.FrameRate)
	}
	if cfg.MinKeypointSeparation != nil && *cfg.MinKeypointSeparation < 0 {
		return errors.Errorf("min_keypoint_separation must be non-negative, got %f", *cfg.MinKeypointSeparation)
	}
	if cfg.MinSupport != nil && *cfg.MinSupport < 0 {
		return errors.Errorf("min_support must be non-negative, got %d", *cfg.MinSupport)
	}
	if cfg.MatchingAlgorithm != nil {
		if _, err := ParseMatchingAlgorithm(*cfg.MatchingAlgorithm); err != nil {
			return err
		}
	}
	if cfg.MaxNoMatch != nil && *cfg.MaxNoMatch < 0 {
		return errors.Errorf("max_no_match must be non-negative, got %d", *cfg.MaxNoMatch)
	}
	if cfg.MaxRecoverDistance != nil && *cfg.MaxRecoverDistance < 0 {
		return errors.Errorf("max_recover_distance must be non-negative, got %f", *cfg.MaxRecoverDistance)
	}
	if cfg.Calibration != nil {
		if _, err := cfg.BuildCalibration(); err != nil {
			return err
		}
	}
	return nil
}

// ParseMatchingAlgorithm converts name into MatchingAlgorithm
func ParseMatchingAlgorithm(name string) (MatchingAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "greedy":
		return MatchingAlgorithmGreedy, nil
	case "hungarian":
		return MatchingAlgorithmHungarian, nil
	default:
		return MatchingAlgorithmGreedy, errors.Errorf("unknown matching algorithm %q", name)
	}
}

// BuildCalibration creates Calibration from the calibration block
func (cfg *Config) BuildCalibration() (*Calibration, error) {
	if cfg.Calibration == nil {
		return nil, ErrNilCalibration
	}
	calib, err := NewCalibrationFromSlices(cfg.Calibration.PRect, cfg.Calibration.RRect, cfg.Calibration.RT)
	if err != nil {
		return nil, errors.Wrap(err, "calibration")
	}
	return calib, nil
}

// GetShrinkFactor returns shrink factor for lidar assignment. Default is 0.10
func (cfg *Config) GetShrinkFactor() float64 {
	if cfg.ShrinkFactor == nil {
		return 0.10
	}
	return *cfg.ShrinkFactor
}

// GetWorkers returns number of goroutines for lidar assignment. Default is 1
func (cfg *Config) GetWorkers() int {
	if cfg.Workers == nil {
		return 1
	}
	return *cfg.Workers
}

// GetFrameRate returns sensor frame rate (Hz). Default is 10
func (cfg *Config) GetFrameRate() float64 {
	if cfg.FrameRate == nil {
		return 10.0
	}
	return *cfg.FrameRate
}

// GetMinKeypointSeparation returns minimal keypoint distance (pixels). Default is 100
func (cfg *Config) GetMinKeypointSeparation() float64 {
	if cfg.MinKeypointSeparation == nil {
		return DefaultMinKeypointSeparation
	}
	return *cfg.MinKeypointSeparation
}

// GetMinSupport returns number of votes to exceed for association. Default is 10
func (cfg *Config) GetMinSupport() int {
	if cfg.MinSupport == nil {
		return DefaultMinSupport
	}
	return *cfg.MinSupport
}

// GetMatchingAlgorithm returns association algorithm. Default is greedy
func (cfg *Config) GetMatchingAlgorithm() MatchingAlgorithm {
	if cfg.MatchingAlgorithm == nil {
		return MatchingAlgorithmGreedy
	}
	algorithm, _ := ParseMatchingAlgorithm(*cfg.MatchingAlgorithm)
	return algorithm
}

// GetMaxNoMatch returns number of frames lost track is kept. Default is 5
func (cfg *Config) GetMaxNoMatch() int {
	if cfg.MaxNoMatch == nil {
		return 5
	}
	return *cfg.MaxNoMatch
}

// GetMaxRecoverDistance returns distance (pixels) for lost track recovery. Default is 50
func (cfg *Config) GetMaxRecoverDistance() float64 {
	if cfg.MaxRecoverDistance == nil {
		return 50.0
	}
	return *cfg.MaxRecoverDistance
}
