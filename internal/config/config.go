// Package config loads gpx-add-elevation settings from defaults, an optional
// YAML file, GPXELEVATION_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/pspoerri/gpxelevation/internal/dem"
	"github.com/pspoerri/gpxelevation/internal/encode"
	"github.com/pspoerri/gpxelevation/internal/geoadmin"
)

// EnvPrefix is prepended to environment variable names:
// GPXELEVATION_RASTER_SRTM_DIR sets raster.srtm_dir.
const EnvPrefix = "GPXELEVATION"

// Config holds all settings.
type Config struct {
	GeoAdmin    GeoAdminConfig `mapstructure:"geoadmin"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Raster      RasterConfig   `mapstructure:"raster"`
	MetricsFile string         `mapstructure:"metrics_file"`
}

type GeoAdminConfig struct {
	ReframeURL string `mapstructure:"reframe_url"`
	HeightURL  string `mapstructure:"height_url"`
	ProfileURL string `mapstructure:"profile_url"`
}

type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"` // 0 means no timeout
	UserAgent string        `mapstructure:"user_agent"`
}

type RasterConfig struct {
	Source        string   `mapstructure:"source"`
	SRTMDir       string   `mapstructure:"srtm_dir"`
	GeoTIFFPaths  []string `mapstructure:"geotiff_paths"`
	TerrariumPath string   `mapstructure:"terrarium_path"`
	TerrariumZoom int      `mapstructure:"terrarium_zoom"`
	Encoding      string   `mapstructure:"encoding"`
	SmoothRadius  int      `mapstructure:"smooth_radius"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"raster-source": "raster.source",
	"metrics-file":  "metrics_file",
}

func defaultSRTMDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "srtm")
	}
	return "srtm"
}

func setDefaults(v *viper.Viper) {
	d := geoadmin.DefaultEndpoints()
	v.SetDefault("geoadmin.reframe_url", d.Reframe)
	v.SetDefault("geoadmin.height_url", d.Height)
	v.SetDefault("geoadmin.profile_url", d.Profile)

	v.SetDefault("http.timeout", time.Duration(0))
	v.SetDefault("http.user_agent", "gpx-add-elevation")

	v.SetDefault("raster.source", "srtm")
	v.SetDefault("raster.srtm_dir", defaultSRTMDir())
	v.SetDefault("raster.geotiff_paths", []string{})
	v.SetDefault("raster.terrarium_path", "")
	v.SetDefault("raster.terrarium_zoom", 0)
	v.SetDefault("raster.encoding", "")
	v.SetDefault("raster.smooth_radius", 2)

	v.SetDefault("metrics_file", "")
}

// Load reads the configuration. An empty path searches for
// gpx-elevation.yaml in the working directory and in
// $HOME/.config/gpx-elevation; a missing file is not an error then. flags
// may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("gpx-elevation")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "gpx-elevation"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error

	for key, raw := range map[string]string{
		"geoadmin.reframe_url": c.GeoAdmin.ReframeURL,
		"geoadmin.height_url":  c.GeoAdmin.HeightURL,
		"geoadmin.profile_url": c.GeoAdmin.ProfileURL,
	} {
		u, perr := url.ParseRequestURI(raw)
		if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			err = multierr.Append(err, fmt.Errorf("%s must be an http(s) URL, got %q", key, raw))
		}
	}

	if c.HTTP.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout))
	}
	if c.Raster.SmoothRadius < 0 {
		err = multierr.Append(err, fmt.Errorf("raster.smooth_radius must not be negative, got %d", c.Raster.SmoothRadius))
	}
	if c.Raster.TerrariumZoom < 0 || c.Raster.TerrariumZoom > 30 {
		err = multierr.Append(err, fmt.Errorf("raster.terrarium_zoom must be 0-30, got %d", c.Raster.TerrariumZoom))
	}
	if c.Raster.Encoding != "" {
		if _, perr := encode.ParseEncoding(c.Raster.Encoding); perr != nil {
			err = multierr.Append(err, fmt.Errorf("raster.encoding: %w", perr))
		}
	}

	kind, perr := dem.ParseKind(c.Raster.Source)
	if perr != nil {
		err = multierr.Append(err, fmt.Errorf("raster.source: %w", perr))
	} else {
		switch kind {
		case dem.KindGeoTIFF:
			if len(c.Raster.GeoTIFFPaths) == 0 {
				err = multierr.Append(err, errors.New("raster.geotiff_paths is required for raster.source geotiff"))
			}
		case dem.KindTerrarium:
			if c.Raster.TerrariumPath == "" {
				err = multierr.Append(err, errors.New("raster.terrarium_path is required for raster.source terrarium"))
			}
		}
	}

	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Endpoints returns the geo.admin.ch service URLs.
func (c *Config) Endpoints() geoadmin.Endpoints {
	return geoadmin.Endpoints{
		Reframe: c.GeoAdmin.ReframeURL,
		Height:  c.GeoAdmin.HeightURL,
		Profile: c.GeoAdmin.ProfileURL,
	}
}

// DEMOptions converts the raster settings for dem.Open.
func (c *Config) DEMOptions() (dem.Options, error) {
	kind, err := dem.ParseKind(c.Raster.Source)
	if err != nil {
		return dem.Options{}, err
	}
	return dem.Options{
		Kind:          kind,
		SRTMDir:       c.Raster.SRTMDir,
		GeoTIFFPaths:  c.Raster.GeoTIFFPaths,
		TerrariumPath: c.Raster.TerrariumPath,
		TerrariumZoom: c.Raster.TerrariumZoom,
		Encoding:      c.Raster.Encoding,
	}, nil
}
