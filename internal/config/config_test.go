package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/BC-Softworks/record-generator/internal/geometry"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their
// defaults and parses args into it.
func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}

	return &fakeBinder{fs: fs}
}

// inTempDir runs the test from an empty directory so no recordgen.yaml in
// the package directory is picked up.
func inTempDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Geometry.Params() != geometry.DefaultParams() {
		t.Errorf("Geometry = %+v; want the 45 RPM defaults", cfg.Geometry)
	}

	if cfg.Paths.Output != "record.stl" {
		t.Errorf("Paths.Output = %q; want %q", cfg.Paths.Output, "record.stl")
	}

	if !cfg.Audio.DCBlock {
		t.Error("Audio.DCBlock = false; want true")
	}

	if cfg.Generator.Workers != 4 {
		t.Errorf("Generator.Workers = %d; want 4", cfg.Generator.Workers)
	}

	if cfg.Generator.StorePrecision != 6 {
		t.Errorf("Generator.StorePrecision = %d; want 6", cfg.Generator.StorePrecision)
	}

	if cfg.Generator.AllowOverlap {
		t.Error("Generator.AllowOverlap should default to false")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "info")
	}
}

func TestGeometryConfig_RoundTrip(t *testing.T) {
	p := geometry.DefaultParams()
	p.RPM = 33.3333
	p.Precision = 6

	if got := FromParams(p).Params(); got != p {
		t.Errorf("FromParams(p).Params() = %+v; want %+v", got, p)
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"geometry-rpm", "45"},
		{"geometry-rate-divisor", "4.45"},
		{"geometry-precision", "4"},
		{"paths-output", "record.stl"},
		{"generator-workers", "4"},
		{"audio-dc-block", "true"},
		{"log-level", "info"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

func TestFlagName(t *testing.T) {
	tests := map[string]string{
		"geometry.sampling_rate":    "geometry-sampling-rate",
		"log.level":                 "log-level",
		"generator.store_precision": "generator-store-precision",
		"generator.allow_overlap":   "generator-allow-overlap",
	}
	for key, want := range tests {
		if got := FlagName(key); got != want {
			t.Errorf("FlagName(%q) = %q; want %q", key, got, want)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg != defaults {
		t.Errorf("Load() = %+v; want defaults %+v", cfg, defaults)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	inTempDir(t)
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd: newFlagBinder(t, defaults,
			"--geometry-rpm=33.3333",
			"--generator-workers=8",
			"--log-level=debug",
			"--audio-dc-block=false",
			"--generator-allow-overlap",
		),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Geometry.RPM != 33.3333 {
		t.Errorf("Geometry.RPM = %v; want 33.3333", cfg.Geometry.RPM)
	}

	if cfg.Generator.Workers != 8 {
		t.Errorf("Generator.Workers = %d; want 8", cfg.Generator.Workers)
	}

	if !cfg.Generator.AllowOverlap {
		t.Error("Generator.AllowOverlap = false; want true from flag")
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "debug")
	}

	if cfg.Audio.DCBlock {
		t.Error("Audio.DCBlock = true; want false")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	inTempDir(t)
	t.Setenv("RECORDGEN_LOG_LEVEL", "warn")
	t.Setenv("RECORDGEN_GEOMETRY_SAMPLING_RATE", "48000")
	t.Setenv("RECORDGEN_PATHS_OUTPUT", "/tmp/out.stl")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "warn")
	}

	if cfg.Geometry.SamplingRate != 48000 {
		t.Errorf("Geometry.SamplingRate = %d; want 48000", cfg.Geometry.SamplingRate)
	}

	if cfg.Paths.Output != "/tmp/out.stl" {
		t.Errorf("Paths.Output = %q; want %q", cfg.Paths.Output, "/tmp/out.stl")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := inTempDir(t)
	cfgFile := filepath.Join(dir, "custom.yaml")

	content := `
log:
  level: error
geometry:
  rpm: 78
  groove_width: 0.1
generator:
  workers: 16
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q; want %q", cfg.Log.Level, "error")
	}

	if cfg.Geometry.RPM != 78 || cfg.Geometry.GrooveWidth != 0.1 {
		t.Errorf("Geometry.RPM = %v, GrooveWidth = %v; want 78 and 0.1", cfg.Geometry.RPM, cfg.Geometry.GrooveWidth)
	}

	if cfg.Generator.Workers != 16 {
		t.Errorf("Generator.Workers = %d; want 16", cfg.Generator.Workers)
	}

	if cfg.Geometry.OuterRadius != defaults.Geometry.OuterRadius {
		t.Errorf("unset key OuterRadius = %v; want default %v", cfg.Geometry.OuterRadius, defaults.Geometry.OuterRadius)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := inTempDir(t)
	if err := os.WriteFile(filepath.Join(dir, "recordgen.yaml"), []byte("generator:\n  workers: 2\nlog:\n  level: error\ngeometry:\n  rpm: 78\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("RECORDGEN_GENERATOR_WORKERS", "3")
	t.Setenv("RECORDGEN_LOG_LEVEL", "warn")

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults, "--log-level=debug"),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// flag > env > file > default
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q; want flag value debug", cfg.Log.Level)
	}
	if cfg.Generator.Workers != 3 {
		t.Errorf("Generator.Workers = %d; want env value 3", cfg.Generator.Workers)
	}
	if cfg.Geometry.RPM != 78 {
		t.Errorf("Geometry.RPM = %v; want file value 78", cfg.Geometry.RPM)
	}
	if cfg.Geometry.Bevel != defaults.Geometry.Bevel {
		t.Errorf("Geometry.Bevel = %v; want default", cfg.Geometry.Bevel)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := inTempDir(t)
	cfgFile := filepath.Join(dir, "bad.yaml")
	// Write invalid YAML
	if err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/recordgen.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

// --- Save ---

func TestSaveTo_LoadRoundTrip(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "nested", "recordgen.yaml")

	want := DefaultConfig()
	want.Geometry.RPM = 33.3333
	want.Paths.Input = "song.flac"
	want.Generator.ASCII = true
	want.Log.File = "recordgen.log"

	if err := want.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := Load(LoadOptions{ConfigFile: path, Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("round trip:\n got %+v\nwant %+v", got, want)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := DefaultConfig().WriteYAML(&buf); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"geometry:", "  rate_divisor: 4.45", "generator:", "  workers: 4", "log:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
