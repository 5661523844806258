// Package config holds the rendering configuration: thresholds, overlay
// blend parameters, annotation style and output naming.
//
// Values are resolved in this order, later wins: Default, YAML file,
// MASK_OVERLAY_* environment variables, command-line flags (applied by the
// caller).
package config

import (
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/mask-overlay/internal/imaging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MASK_OVERLAY_"

// Config is the complete set of rendering options.
type Config struct {
	// ConfidenceThreshold drops detections whose confidence is not strictly
	// greater than it.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// MaskThreshold binarizes resampled masks: value > MaskThreshold.
	MaskThreshold float64 `yaml:"mask_threshold"`

	// OverlayColor is blended into masked pixels, "#RRGGBB".
	OverlayColor string `yaml:"overlay_color"`

	// OverlayAlpha is the overlay weight; the underlying pixel gets 1-OverlayAlpha.
	OverlayAlpha float64 `yaml:"overlay_alpha"`

	BoxColor     string `yaml:"box_color"`
	BoxThickness int    `yaml:"box_thickness"`
	LabelColor   string `yaml:"label_color"`

	// LabelOffset is how far above the box's top edge the label baseline sits.
	LabelOffset int `yaml:"label_offset"`

	// ClampBoxes limits resolved boxes to the image before rasterizing. Off by
	// default: out-of-range boxes are clipped at draw time instead, which keeps
	// the mask aligned with the detector's box.
	ClampBoxes bool `yaml:"clamp_boxes"`

	// Workers bounds the goroutines used for rasterizing and writing crops.
	Workers int `yaml:"workers"`

	// ArtifactPattern names per-instance crops; %d is the filtered index.
	ArtifactPattern string `yaml:"artifact_pattern"`

	// CompositeName is the file name of the annotated image.
	CompositeName string `yaml:"composite_name"`

	JPEGQuality int `yaml:"jpeg_quality"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ConfidenceThreshold: 0.5,
		MaskThreshold:       0.3,
		OverlayColor:        "#FF0000",
		OverlayAlpha:        0.4,
		BoxColor:            "#FFFFFF",
		BoxThickness:        2,
		LabelColor:          "#FFFFFF",
		LabelOffset:         5,
		Workers:             runtime.NumCPU(),
		ArtifactPattern:     "segmented%d.png",
		CompositeName:       "result.jpg",
		JPEGQuality:         95,
	}
}

// Load returns Default overlaid with the YAML file at path. Keys missing from
// the file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MASK_OVERLAY_* variables, e.g.
// MASK_OVERLAY_CONFIDENCE_THRESHOLD=0.7. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	floats := map[string]*float64{
		"CONFIDENCE_THRESHOLD": &c.ConfidenceThreshold,
		"MASK_THRESHOLD":       &c.MaskThreshold,
		"OVERLAY_ALPHA":        &c.OverlayAlpha,
	}
	for key, dst := range floats {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, key)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"BOX_THICKNESS": &c.BoxThickness,
		"LABEL_OFFSET":  &c.LabelOffset,
		"WORKERS":       &c.Workers,
		"JPEG_QUALITY":  &c.JPEGQuality,
	}
	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, key)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		"OVERLAY_COLOR":    &c.OverlayColor,
		"BOX_COLOR":        &c.BoxColor,
		"LABEL_COLOR":      &c.LabelColor,
		"ARTIFACT_PATTERN": &c.ArtifactPattern,
		"COMPOSITE_NAME":   &c.CompositeName,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "CLAMP_BOXES"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "%sCLAMP_BOXES", EnvPrefix)
		}
		c.ClampBoxes = b
	}
	return nil
}

// Palette is the parsed form of the configured colors.
type Palette struct {
	Overlay imaging.RGBColor
	Box     imaging.RGBColor
	Label   imaging.RGBColor
}

// Palette parses the three configured colors.
func (c Config) Palette() (Palette, error) {
	var p Palette
	var err error
	if p.Overlay, err = imaging.ParseColor(c.OverlayColor); err != nil {
		return p, errors.Wrap(err, "overlay_color")
	}
	if p.Box, err = imaging.ParseColor(c.BoxColor); err != nil {
		return p, errors.Wrap(err, "box_color")
	}
	if p.Label, err = imaging.ParseColor(c.LabelColor); err != nil {
		return p, errors.Wrap(err, "label_color")
	}
	return p, nil
}

// Validate checks ranges and colors.
func (c Config) Validate() error {
	if !unit(c.ConfidenceThreshold) {
		return errors.Errorf("confidence_threshold %v outside [0,1]", c.ConfidenceThreshold)
	}
	if !unit(c.MaskThreshold) {
		return errors.Errorf("mask_threshold %v outside [0,1]", c.MaskThreshold)
	}
	if !unit(c.OverlayAlpha) {
		return errors.Errorf("overlay_alpha %v outside [0,1]", c.OverlayAlpha)
	}
	if c.BoxThickness < 1 {
		return errors.Errorf("box_thickness must be at least 1, got %d", c.BoxThickness)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.Errorf("jpeg_quality %d outside [1,100]", c.JPEGQuality)
	}
	// The pattern goes straight to Sprintf, so %d must be its only verb.
	if strings.Count(c.ArtifactPattern, "%d") != 1 || strings.Count(c.ArtifactPattern, "%") != 1 {
		return errors.Errorf("artifact_pattern %q must contain exactly one %%d and no other verb", c.ArtifactPattern)
	}
	if strings.ContainsAny(c.ArtifactPattern, `/\`) {
		return errors.Errorf("artifact_pattern %q must be a plain file name", c.ArtifactPattern)
	}
	if c.CompositeName == "" {
		return errors.New("composite_name is empty")
	}
	if strings.ContainsAny(c.CompositeName, `/\`) {
		return errors.Errorf("composite_name %q must be a plain file name", c.CompositeName)
	}
	if _, err := c.Palette(); err != nil {
		return err
	}
	return nil
}

// unit reports whether v is in [0,1]. NaN is not.
func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
