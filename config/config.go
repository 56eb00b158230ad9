package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix namespaces environment overrides: server.max-concurrent
// is read from THUMBNAILER_SERVER_MAX_CONCURRENT.
const DefaultEnvPrefix = "THUMBNAILER"

var validate = validator.New(validator.WithRequiredStructEnabled())

func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return ConfigOptions{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: DefaultEnvPrefix,
	}
}

// NewConfig reads every config file that exists for the current mode, in
// increasing priority: config, config.local, config.<mode>,
// config.<mode>.local. Missing files are not an error; defaults and
// environment variables still apply.
func NewConfig(optsArr ...ConfigOptions) (*Config, error) {
	opts := DefaultConfigOptions()
	if len(optsArr) > 0 {
		opts = optsArr[0]
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	files := configFilePaths(opts, CurrentMode())
	if err := mergeFiles(v, files); err != nil {
		return nil, err
	}
	if len(files) > 0 {
		v.SetConfigFile(files[0])
	}

	return &Config{instance: v, opts: opts, files: files}, nil
}

func mergeFiles(v *viper.Viper, files []string) error {
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open config %s: %w", path, err)
		}
		err = v.MergeConfig(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return nil
}

// Files lists the config files that were loaded.
func (c *Config) Files() []string {
	return c.files
}

// Bind fills instance from defaults tags, then config files and
// environment, and validates the result. With WatchAble set, instance is
// rebound whenever the base file changes.
func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config instance is nil")
	}
	if instance == nil || reflect.TypeOf(instance).Kind() != reflect.Pointer {
		return fmt.Errorf("bind target must be a non-nil pointer")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.load(instance); err != nil {
		return err
	}

	if c.opts.WatchAble && len(c.files) > 0 {
		c.watchOnce.Do(func() {
			c.instance.OnConfigChange(func(e fsnotify.Event) {
				c.watchMutex.Lock()
				defer c.watchMutex.Unlock()

				if err := c.instance.ReadInConfig(); err != nil {
					return
				}
				if err := mergeFiles(c.instance, c.files[1:]); err != nil {
					return
				}
				if err := c.load(instance); err != nil {
					return
				}
				if c.opts.OnChange != nil {
					c.opts.OnChange(e)
				}
			})
			c.instance.WatchConfig()
		})
	}
	return nil
}

func (c *Config) load(instance any) error {
	bindEnvKeys(c.instance, reflect.TypeOf(instance), "")

	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("set defaults: %w", err)
	}
	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}
	if err := validate.Struct(instance); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if v, ok := instance.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}

func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.Get(key)
}

func (c *Config) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	c.instance.Set(key, value)
}

// bindEnvKeys registers every mapstructure key of t with viper so that
// environment variables apply even when no config file mentions the key.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = strings.ToLower(field.Name)
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			bindEnvKeys(v, ft, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

func configFilePaths(opts ConfigOptions, mode Mode) []string {
	names := []string{opts.FileName, opts.FileName + ".local"}
	for _, alias := range mode.aliases() {
		names = append(names, opts.FileName+"."+alias, opts.FileName+"."+alias+".local")
	}

	var files []string
	for _, name := range names {
		path := filepath.Join(opts.BasePath, name+"."+opts.FileType)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files = append(files, path)
		}
	}
	return files
}
