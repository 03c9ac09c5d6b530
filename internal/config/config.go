package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// DSSAT installation
	DSSATBase    string            `mapstructure:"dssat_base" yaml:"dssat_base"`
	DSSATProFile string            `mapstructure:"dssatpro_file" yaml:"dssatpro_file"`
	DataCDE      string            `mapstructure:"data_cde" yaml:"data_cde"`
	DetailCDE    string            `mapstructure:"detail_cde" yaml:"detail_cde"`
	Folders      map[string]string `mapstructure:"folders" yaml:"folders,omitempty"`

	// Cache bounds
	CacheCapacity          int `mapstructure:"cache_capacity" yaml:"cache_capacity"`
	DateCacheSize          int `mapstructure:"date_cache_size" yaml:"date_cache_size"`
	VarInfoCacheSize       int `mapstructure:"varinfo_cache_size" yaml:"varinfo_cache_size"`
	VarInfoLookupCacheSize int `mapstructure:"varinfo_lookup_cache_size" yaml:"varinfo_lookup_cache_size"`

	// Scaling and metrics
	TargetMin   float64 `mapstructure:"target_min" yaml:"target_min"`
	TargetMax   float64 `mapstructure:"target_max" yaml:"target_max"`
	ScalePolicy string  `mapstructure:"scale_policy" yaml:"scale_policy"`
	ReportR2    bool    `mapstructure:"report_r2" yaml:"report_r2"`

	// Rendering
	RenderBatchSize int `mapstructure:"render_batch_size" yaml:"render_batch_size"`
	MaxPoints       int `mapstructure:"max_points" yaml:"max_points"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	ViewsDir string `mapstructure:"views_dir" yaml:"views_dir"`
}

const dirName = ".dssatview"

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dssatview/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DSSATVIEW")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dssat_base", defaultBase())
	v.SetDefault("dssatpro_file", "")
	v.SetDefault("data_cde", "")
	v.SetDefault("detail_cde", "")
	v.SetDefault("cache_capacity", 256)
	v.SetDefault("date_cache_size", 1024)
	v.SetDefault("varinfo_cache_size", 8)
	v.SetDefault("varinfo_lookup_cache_size", 256)
	v.SetDefault("target_min", 1000.0)
	v.SetDefault("target_max", 10000.0)
	v.SetDefault("scale_policy", "auto")
	v.SetDefault("report_r2", true)
	v.SetDefault("render_batch_size", 5000)
	v.SetDefault("max_points", 2000)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("views_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.resolvePaths(); err != nil {
		return nil, err
	}
	return &c, nil
}

func defaultBase() string {
	if os.PathSeparator == '\\' {
		return `C:/DSSAT48`
	}
	return "/opt/DSSAT48"
}

// resolvePaths fills file paths derived from dssat_base and the views dir.
func (c *Global) resolvePaths() error {
	if c.DSSATProFile == "" {
		c.DSSATProFile = filepath.Join(c.DSSATBase, "DSSATPRO.L48")
	}
	if c.DataCDE == "" {
		c.DataCDE = filepath.Join(c.DSSATBase, "DATA.CDE")
	}
	if c.DetailCDE == "" {
		c.DetailCDE = filepath.Join(c.DSSATBase, "DETAIL.CDE")
	}
	if c.ViewsDir == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		c.ViewsDir = filepath.Join(dir, "views")
	}
	return nil
}

// Set assigns a single key from its string form. A rejected value leaves
// the configuration unchanged.
func (c *Global) Set(key, val string) error {
	setInt := func(dst *int) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	setFloat := func(dst *float64) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		*dst = f
		return nil
	}
	switch key {
	case "dssat_base":
		c.DSSATBase = val
	case "dssatpro_file":
		c.DSSATProFile = val
	case "data_cde":
		c.DataCDE = val
	case "detail_cde":
		c.DetailCDE = val
	case "views_dir":
		c.ViewsDir = val
	case "cache_capacity":
		return setInt(&c.CacheCapacity)
	case "date_cache_size":
		return setInt(&c.DateCacheSize)
	case "varinfo_cache_size":
		return setInt(&c.VarInfoCacheSize)
	case "varinfo_lookup_cache_size":
		return setInt(&c.VarInfoLookupCacheSize)
	case "render_batch_size":
		return setInt(&c.RenderBatchSize)
	case "max_points":
		return setInt(&c.MaxPoints)
	case "target_min":
		return setFloat(&c.TargetMin)
	case "target_max":
		return setFloat(&c.TargetMax)
	case "scale_policy":
		switch val {
		case "auto", "range", "magnitude":
			c.ScalePolicy = val
		default:
			return fmt.Errorf("invalid scale_policy: %s (use auto, range or magnitude)", val)
		}
	case "report_r2":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for report_r2: %v", val)
		}
		c.ReportR2 = b
	case "log_level":
		c.LogLevel = val
	case "log_format":
		if val != "console" && val != "json" {
			return fmt.Errorf("invalid log_format: %s (use console or json)", val)
		}
		c.LogFormat = val
	default:
		if name, ok := strings.CutPrefix(key, "folders."); ok && name != "" {
			if c.Folders == nil {
				c.Folders = map[string]string{}
			}
			c.Folders[name] = val
			return nil
		}
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Lines renders the effective configuration as sorted "key: value" lines.
func (c *Global) Lines() []string {
	out := []string{
		fmt.Sprintf("dssat_base: %s", c.DSSATBase),
		fmt.Sprintf("dssatpro_file: %s", c.DSSATProFile),
		fmt.Sprintf("data_cde: %s", c.DataCDE),
		fmt.Sprintf("detail_cde: %s", c.DetailCDE),
		fmt.Sprintf("cache_capacity: %d", c.CacheCapacity),
		fmt.Sprintf("date_cache_size: %d", c.DateCacheSize),
		fmt.Sprintf("varinfo_cache_size: %d", c.VarInfoCacheSize),
		fmt.Sprintf("varinfo_lookup_cache_size: %d", c.VarInfoLookupCacheSize),
		fmt.Sprintf("target_min: %g", c.TargetMin),
		fmt.Sprintf("target_max: %g", c.TargetMax),
		fmt.Sprintf("scale_policy: %s", c.ScalePolicy),
		fmt.Sprintf("report_r2: %t", c.ReportR2),
		fmt.Sprintf("render_batch_size: %d", c.RenderBatchSize),
		fmt.Sprintf("max_points: %d", c.MaxPoints),
		fmt.Sprintf("log_level: %s", c.LogLevel),
		fmt.Sprintf("log_format: %s", c.LogFormat),
		fmt.Sprintf("views_dir: %s", c.ViewsDir),
	}
	names := make([]string, 0, len(c.Folders))
	for k := range c.Folders {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		out = append(out, fmt.Sprintf("folders.%s: %s", k, c.Folders[k]))
	}
	return out
}
