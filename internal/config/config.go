package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/star/scangeo/internal/footprint"
	"github.com/star/scangeo/internal/geos"
	"github.com/star/scangeo/internal/tle"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig          `mapstructure:"server"`
	Log           LogConfig             `mapstructure:"log"`
	Render        RenderConfig          `mapstructure:"render"`
	TLE           TLEConfig             `mapstructure:"tle"`
	Workers       int                   `mapstructure:"workers"`
	Geostationary []GeostationaryConfig `mapstructure:"geostationary"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	AuthToken         string        `mapstructure:"auth_token"`
	TrustProxy        bool          `mapstructure:"trust_proxy"`
	MaxBatch          int           `mapstructure:"max_batch"`
	MaxBatchPerClient int           `mapstructure:"max_batch_per_client"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RenderConfig carries the outline colours and discretization.
type RenderConfig struct {
	SegmentColor  string  `mapstructure:"segment_color"`
	SelectedColor string  `mapstructure:"selected_color"`
	ArcPoints     int     `mapstructure:"arc_points"`
	Radius        float64 `mapstructure:"radius"`
	PreviewWidth  int     `mapstructure:"preview_width"`
	PreviewHeight int     `mapstructure:"preview_height"`
}

type TLEConfig struct {
	Files           []string      `mapstructure:"files"`
	URLs            []string      `mapstructure:"urls"`
	CacheDir        string        `mapstructure:"cache_dir"`
	CacheKeep       int           `mapstructure:"cache_keep"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// GeostationaryConfig describes one imager of the satellite catalogue.
type GeostationaryConfig struct {
	Name                string  `mapstructure:"name"`
	SubLongitude        float64 `mapstructure:"sub_longitude"`
	ColumnOffset        int64   `mapstructure:"column_offset"`
	LineOffset          int64   `mapstructure:"line_offset"`
	ColumnScalingFactor int64   `mapstructure:"column_scaling_factor"`
	LineScalingFactor   int64   `mapstructure:"line_scaling_factor"`
}

// Load reads configuration from path (or config.yaml in the working
// directory or ./configs when path is empty) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.trust_proxy", false)
	v.SetDefault("server.max_batch", 500)
	v.SetDefault("server.max_batch_per_client", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("render.segment_color", footprint.DefaultColor)
	v.SetDefault("render.selected_color", footprint.DefaultSelectedColor)
	v.SetDefault("render.arc_points", 10)
	v.SetDefault("render.radius", 1.001)
	v.SetDefault("render.preview_width", 1024)
	v.SetDefault("render.preview_height", 512)
	v.SetDefault("tle.files", []string{})
	v.SetDefault("tle.urls", []string{})
	v.SetDefault("tle.cache_dir", "")
	v.SetDefault("tle.cache_keep", 5)
	v.SetDefault("tle.timeout", 30*time.Second)
	v.SetDefault("tle.refresh_interval", 6*time.Hour)
	v.SetDefault("workers", 0)
	v.SetDefault("geostationary", defaultGeostationary())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		_ = v.ReadInConfig() // OK if missing
	}

	// Environment variables: SCANGEO_SERVER_ADDR → server.addr
	v.SetEnvPrefix("SCANGEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaultGeostationary() []map[string]any {
	var out []map[string]any
	for _, s := range geos.DefaultSatellites() {
		out = append(out, map[string]any{
			"name":                  s.Name,
			"sub_longitude":         s.Scan.SubLongitudeDeg,
			"column_offset":         s.Scan.ColumnOffset,
			"line_offset":           s.Scan.LineOffset,
			"column_scaling_factor": s.Scan.ColumnScalingFactor,
			"line_scaling_factor":   s.Scan.LineScalingFactor,
		})
	}
	return out
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.MaxBatch < 1 || c.Server.MaxBatchPerClient < 1 {
		errs = append(errs, "server.max_batch and server.max_batch_per_client must be at least 1")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}
	if _, err := c.Style(); err != nil {
		errs = append(errs, "render: "+err.Error())
	}
	if c.Render.ArcPoints < 2 {
		errs = append(errs, fmt.Sprintf("render.arc_points must be at least 2, got %d", c.Render.ArcPoints))
	}
	if c.Render.Radius <= 0 {
		errs = append(errs, "render.radius must be positive")
	}
	if c.Render.PreviewWidth <= 0 || c.Render.PreviewHeight <= 0 {
		errs = append(errs, "render.preview_width and render.preview_height must be positive")
	}
	if c.TLE.CacheKeep < 0 {
		errs = append(errs, "tle.cache_keep must not be negative")
	}
	if c.Workers < 0 {
		errs = append(errs, "workers must not be negative")
	}
	if len(c.Geostationary) == 0 {
		errs = append(errs, "geostationary must list at least one satellite")
	} else if _, err := geos.NewCatalog(c.Satellites()); err != nil {
		errs = append(errs, "geostationary: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Satellites converts the geostationary list into catalogue entries.
func (c *Config) Satellites() []geos.Satellite {
	sats := make([]geos.Satellite, 0, len(c.Geostationary))
	for _, g := range c.Geostationary {
		sats = append(sats, geos.Satellite{
			Name: g.Name,
			Scan: geos.ScanGeometry{
				SubLongitudeDeg:     g.SubLongitude,
				ColumnOffset:        g.ColumnOffset,
				LineOffset:          g.LineOffset,
				ColumnScalingFactor: g.ColumnScalingFactor,
				LineScalingFactor:   g.LineScalingFactor,
			},
		})
	}
	return sats
}

// Style parses the outline colours.
func (c *Config) Style() (footprint.Style, error) {
	return footprint.ParseStyle(c.Render.SegmentColor, c.Render.SelectedColor)
}

// FootprintOptions returns the outline discretization.
func (c *Config) FootprintOptions() footprint.Options {
	return footprint.Options{ArcPoints: c.Render.ArcPoints, Radius: c.Render.Radius}
}

// TLESources returns where element sets are loaded from.
func (c *Config) TLESources() tle.Sources {
	return tle.Sources{
		Files:     c.TLE.Files,
		URLs:      c.TLE.URLs,
		CacheDir:  c.TLE.CacheDir,
		CacheKeep: c.TLE.CacheKeep,
		Timeout:   c.TLE.Timeout,
	}
}
