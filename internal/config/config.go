// Package config handles importer configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/abcstream/internal/logger"
	"github.com/Faultbox/abcstream/internal/mesh"
	"github.com/Faultbox/abcstream/internal/scene"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid config")

// Config holds all importer settings.
type Config struct {
	Import   ImportConfig   `yaml:"import"`
	Playback PlaybackConfig `yaml:"playback"`
	Points   PointsConfig   `yaml:"points"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Workers  int            `yaml:"workers"` // 0 = one per CPU
}

// ImportConfig controls how stored samples become renderer data.
type ImportConfig struct {
	Normals            string  `yaml:"normals"`  // ReadFromFile, ComputeIfMissing, AlwaysCompute, Ignore
	Tangents           string  `yaml:"tangents"` // None, Compute
	SwapHandedness     bool    `yaml:"swap_handedness"`
	SwapFaceWinding    bool    `yaml:"swap_face_winding"`
	InterpolateSamples bool    `yaml:"interpolate_samples"`
	TurnQuadEdges      bool    `yaml:"turn_quad_edges"`
	AspectRatio        float32 `yaml:"aspect_ratio"` // -1 = from the camera aperture
	SplitUnit          int     `yaml:"split_unit"`
	VertexMotionScale  float32 `yaml:"vertex_motion_scale"`
}

// PlaybackConfig holds the time range the CLI steps through.
type PlaybackConfig struct {
	FPS   float64  `yaml:"fps"`
	Start *float64 `yaml:"start,omitempty"` // nil = scene start
	End   *float64 `yaml:"end,omitempty"`   // nil = scene end
	Loop  bool     `yaml:"loop"`
}

// PointsConfig holds point cloud settings.
type PointsConfig struct {
	Sort             bool       `yaml:"sort"`
	SortBasePosition [3]float32 `yaml:"sort_base_position"`
}

// ExportConfig holds glTF output settings.
type ExportConfig struct {
	Output string `yaml:"output"`
	Binary bool   `yaml:"binary"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Default returns a Config with the importer defaults.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			Normals:            mesh.NormalsComputeIfMissing.String(),
			Tangents:           mesh.TangentsNone.String(),
			SwapHandedness:     true,
			SwapFaceWinding:    false,
			InterpolateSamples: true,
			TurnQuadEdges:      false,
			AspectRatio:        -1,
			SplitUnit:          mesh.DefaultSplitUnit,
			VertexMotionScale:  1,
		},
		Playback: PlaybackConfig{
			FPS: 30,
		},
		Export: ExportConfig{
			Output: "frame.gltf",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
		},
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := mesh.ParseNormalsMode(c.Import.Normals); err != nil {
		errs = append(errs, err)
	}
	if _, err := mesh.ParseTangentsMode(c.Import.Tangents); err != nil {
		errs = append(errs, err)
	}
	if c.Import.SplitUnit < mesh.MinSplitUnit {
		errs = append(errs, fmt.Errorf("import.split_unit %d is below %d", c.Import.SplitUnit, mesh.MinSplitUnit))
	}
	if c.Import.AspectRatio <= 0 && c.Import.AspectRatio != -1 {
		errs = append(errs, fmt.Errorf("import.aspect_ratio must be positive or -1, got %v", c.Import.AspectRatio))
	}
	if c.Playback.FPS <= 0 {
		errs = append(errs, fmt.Errorf("playback.fps must be positive, got %v", c.Playback.FPS))
	}
	if c.Playback.Start != nil && c.Playback.End != nil && *c.Playback.End < *c.Playback.Start {
		errs = append(errs, fmt.Errorf("playback.end %v is before playback.start %v", *c.Playback.End, *c.Playback.Start))
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// SceneConfig converts the file settings into the scene import options.
func (c *Config) SceneConfig() (scene.ImportConfig, error) {
	if err := c.Validate(); err != nil {
		return scene.ImportConfig{}, err
	}
	normals, _ := mesh.ParseNormalsMode(c.Import.Normals)
	tangents, _ := mesh.ParseTangentsMode(c.Import.Tangents)

	return scene.ImportConfig{
		Normals:            normals,
		Tangents:           tangents,
		SwapHandedness:     c.Import.SwapHandedness,
		SwapFaceWinding:    c.Import.SwapFaceWinding,
		InterpolateSamples: c.Import.InterpolateSamples,
		TurnQuadEdges:      c.Import.TurnQuadEdges,
		AspectRatio:        c.Import.AspectRatio,
		SplitUnit:          c.Import.SplitUnit,
		VertexMotionScale:  c.Import.VertexMotionScale,
		SortPoints:         c.Points.Sort,
		SortBasePosition:   mgl32.Vec3(c.Points.SortBasePosition),
		Workers:            c.Workers,
	}, nil
}
