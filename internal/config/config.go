package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/BC-Softworks/record-generator/internal/geometry"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RECORDGEN"

type Config struct {
	Geometry  GeometryConfig  `mapstructure:"geometry" yaml:"geometry"`
	Paths     PathsConfig     `mapstructure:"paths" yaml:"paths"`
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Generator GeneratorConfig `mapstructure:"generator" yaml:"generator"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// GeometryConfig mirrors geometry.Params.
type GeometryConfig struct {
	SamplingRate    int     `mapstructure:"sampling_rate" yaml:"sampling_rate"`
	RPM             float64 `mapstructure:"rpm" yaml:"rpm"`
	Downsampling    int     `mapstructure:"downsampling" yaml:"downsampling"`
	Precision       int     `mapstructure:"precision" yaml:"precision"`
	Diameter        float64 `mapstructure:"diameter" yaml:"diameter"`
	InnerHole       float64 `mapstructure:"inner_hole" yaml:"inner_hole"`
	InnerRadius     float64 `mapstructure:"inner_radius" yaml:"inner_radius"`
	OuterRadius     float64 `mapstructure:"outer_radius" yaml:"outer_radius"`
	RecordHeight    float64 `mapstructure:"record_height" yaml:"record_height"`
	MicronsPerLayer float64 `mapstructure:"microns_per_layer" yaml:"microns_per_layer"`
	AmplitudeLayers float64 `mapstructure:"amplitude_layers" yaml:"amplitude_layers"`
	DepthLayers     float64 `mapstructure:"depth_layers" yaml:"depth_layers"`
	Bevel           float64 `mapstructure:"bevel" yaml:"bevel"`
	GrooveWidth     float64 `mapstructure:"groove_width" yaml:"groove_width"`
	RateDivisor     float64 `mapstructure:"rate_divisor" yaml:"rate_divisor"`
	FloorOffset     float64 `mapstructure:"floor_offset" yaml:"floor_offset"`
}

type PathsConfig struct {
	Input  string `mapstructure:"input" yaml:"input"`
	Output string `mapstructure:"output" yaml:"output"`
	// Blank is a previously exported blank STL. Empty means build one.
	Blank string `mapstructure:"blank" yaml:"blank"`
}

type AudioConfig struct {
	DCBlock       bool    `mapstructure:"dc_block" yaml:"dc_block"`
	PeakNormalize bool    `mapstructure:"peak_normalize" yaml:"peak_normalize"`
	FadeMS        float64 `mapstructure:"fade_ms" yaml:"fade_ms"`
}

type GeneratorConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
	// StorePrecision is the number of decimals vertices are compared at.
	StorePrecision int  `mapstructure:"store_precision" yaml:"store_precision"`
	ASCII          bool `mapstructure:"ascii" yaml:"ascii"`
	// AllowOverlap lets a waveform longer than one revolution through when
	// the radial increment truncates to zero.
	AllowOverlap bool `mapstructure:"allow_overlap" yaml:"allow_overlap"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Geometry: FromParams(geometry.DefaultParams()),
		Paths: PathsConfig{
			Input:  "",
			Output: "record.stl",
			Blank:  "",
		},
		Audio: AudioConfig{
			DCBlock:       true,
			PeakNormalize: false,
			FadeMS:        0,
		},
		Generator: GeneratorConfig{
			Workers:        4,
			StorePrecision: 6,
			ASCII:          false,
			AllowOverlap:   false,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// FromParams converts geometry parameters to their config form.
func FromParams(p geometry.Params) GeometryConfig {
	return GeometryConfig{
		SamplingRate:    p.SamplingRate,
		RPM:             p.RPM,
		Downsampling:    p.Downsampling,
		Precision:       p.Precision,
		Diameter:        p.Diameter,
		InnerHole:       p.InnerHole,
		InnerRadius:     p.InnerRadius,
		OuterRadius:     p.OuterRadius,
		RecordHeight:    p.RecordHeight,
		MicronsPerLayer: p.MicronsPerLayer,
		AmplitudeLayers: p.AmplitudeLayers,
		DepthLayers:     p.DepthLayers,
		Bevel:           p.Bevel,
		GrooveWidth:     p.GrooveWidth,
		RateDivisor:     p.RateDivisor,
		FloorOffset:     p.FloorOffset,
	}
}

// Params converts g to geometry parameters.
func (g GeometryConfig) Params() geometry.Params {
	return geometry.Params{
		SamplingRate:    g.SamplingRate,
		RPM:             g.RPM,
		Downsampling:    g.Downsampling,
		Precision:       g.Precision,
		Diameter:        g.Diameter,
		InnerHole:       g.InnerHole,
		InnerRadius:     g.InnerRadius,
		OuterRadius:     g.OuterRadius,
		RecordHeight:    g.RecordHeight,
		MicronsPerLayer: g.MicronsPerLayer,
		AmplitudeLayers: g.AmplitudeLayers,
		DepthLayers:     g.DepthLayers,
		Bevel:           g.Bevel,
		GrooveWidth:     g.GrooveWidth,
		RateDivisor:     g.RateDivisor,
		FloorOffset:     g.FloorOffset,
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	g := defaults.Geometry
	fs.Int("geometry-sampling-rate", g.SamplingRate, "Sampling rate of the source audio in Hz")
	fs.Float64("geometry-rpm", g.RPM, "Record speed in revolutions per minute")
	fs.Int("geometry-downsampling", g.Downsampling, "Decimation factor that sets the angular steps per revolution")
	fs.Int("geometry-precision", g.Precision, "Decimal places derived constants are truncated to")
	fs.Float64("geometry-diameter", g.Diameter, "Radius of the record edge")
	fs.Float64("geometry-inner-hole", g.InnerHole, "Diameter of the centre hole")
	fs.Float64("geometry-inner-radius", g.InnerRadius, "Innermost groove radius")
	fs.Float64("geometry-outer-radius", g.OuterRadius, "Radius where the groove starts")
	fs.Float64("geometry-record-height", g.RecordHeight, "Thickness of the record")
	fs.Float64("geometry-microns-per-layer", g.MicronsPerLayer, "Printer layer height in microns")
	fs.Float64("geometry-amplitude-layers", g.AmplitudeLayers, "Groove amplitude in layers")
	fs.Float64("geometry-depth-layers", g.DepthLayers, "Groove depth in layers")
	fs.Float64("geometry-bevel", g.Bevel, "Bevel factor of the groove walls")
	fs.Float64("geometry-groove-width", g.GrooveWidth, "Width of the groove floor")
	fs.Float64("geometry-rate-divisor", g.RateDivisor, "Waveform samples consumed per angular step")
	fs.Float64("geometry-floor-offset", g.FloorOffset, "Depth of the groove floor below the top surface")
	fs.String("paths-input", defaults.Paths.Input, "Waveform CSV or audio file")
	fs.String("paths-output", defaults.Paths.Output, "Output STL path")
	fs.String("paths-blank", defaults.Paths.Blank, "Pre-built blank STL (default: build one)")
	fs.Bool("audio-dc-block", defaults.Audio.DCBlock, "Remove DC offset from decoded audio")
	fs.Bool("audio-peak-normalize", defaults.Audio.PeakNormalize, "Scale decoded audio to full scale")
	fs.Float64("audio-fade-ms", defaults.Audio.FadeMS, "Fade decoded audio in and out over this many milliseconds")
	fs.Int("generator-workers", defaults.Generator.Workers, "Revolutions computed in parallel")
	fs.Int("generator-store-precision", defaults.Generator.StorePrecision, "Decimals vertices are de-duplicated at")
	fs.Bool("generator-ascii", defaults.Generator.ASCII, "Write ASCII STL instead of binary")
	fs.Bool("generator-allow-overlap", defaults.Generator.AllowOverlap, "Cut several revolutions even when the radial increment truncates to zero")
	fs.String("log-level", defaults.Log.Level, "Log level (debug|info|warn|error)")
	fs.String("log-file", defaults.Log.File, "Also write JSON logs to this rotated file")
}

// FlagName returns the command line flag bound to a config key.
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("recordgen")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// bindFlags binds each known key to its flag so that config file values
// keep their nested keys while set flags still take precedence.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range v.AllKeys() {
		f := fs.Lookup(FlagName(key))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", f.Name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	g := c.Geometry
	v.SetDefault("geometry.sampling_rate", g.SamplingRate)
	v.SetDefault("geometry.rpm", g.RPM)
	v.SetDefault("geometry.downsampling", g.Downsampling)
	v.SetDefault("geometry.precision", g.Precision)
	v.SetDefault("geometry.diameter", g.Diameter)
	v.SetDefault("geometry.inner_hole", g.InnerHole)
	v.SetDefault("geometry.inner_radius", g.InnerRadius)
	v.SetDefault("geometry.outer_radius", g.OuterRadius)
	v.SetDefault("geometry.record_height", g.RecordHeight)
	v.SetDefault("geometry.microns_per_layer", g.MicronsPerLayer)
	v.SetDefault("geometry.amplitude_layers", g.AmplitudeLayers)
	v.SetDefault("geometry.depth_layers", g.DepthLayers)
	v.SetDefault("geometry.bevel", g.Bevel)
	v.SetDefault("geometry.groove_width", g.GrooveWidth)
	v.SetDefault("geometry.rate_divisor", g.RateDivisor)
	v.SetDefault("geometry.floor_offset", g.FloorOffset)
	v.SetDefault("paths.input", c.Paths.Input)
	v.SetDefault("paths.output", c.Paths.Output)
	v.SetDefault("paths.blank", c.Paths.Blank)
	v.SetDefault("audio.dc_block", c.Audio.DCBlock)
	v.SetDefault("audio.peak_normalize", c.Audio.PeakNormalize)
	v.SetDefault("audio.fade_ms", c.Audio.FadeMS)
	v.SetDefault("generator.workers", c.Generator.Workers)
	v.SetDefault("generator.store_precision", c.Generator.StorePrecision)
	v.SetDefault("generator.ascii", c.Generator.ASCII)
	v.SetDefault("generator.allow_overlap", c.Generator.AllowOverlap)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.file", c.Log.File)
}
