package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"permanode/pkg/logging"
)

// Load reads the YAML config at path, overlaying it on Default(). A
// missing file is not an error: the defaults are returned as-is, matching
// the teacher's "no config.yaml found, using defaults" loader behavior.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "no config file at %s, using defaults", path)
			return renderTemplates(cfg)
		}
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	logging.Info("ConfigLoader", "loaded configuration from %s", path)

	cfg, err = renderTemplates(cfg)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// renderTemplates resolves `{{ env "VAR" }}`-style placeholders in
// directory-valued fields through text/template with sprig's function map,
// grounded on the teacher's internal/template engine. This lets operators
// point logs_dir at an environment-derived path without a separate
// templating pass of their own.
func renderTemplates(cfg Config) (Config, error) {
	rendered, err := renderOne(cfg.LogsDir)
	if err != nil {
		return Config{}, fmt.Errorf("config: rendering logs_dir: %w", err)
	}
	cfg.LogsDir = rendered
	return cfg, nil
}

func renderOne(value string) (string, error) {
	tmpl, err := template.New("value").Funcs(sprig.TxtFuncMap()).Parse(value)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Watch starts watching path for changes and invokes onChange with the
// freshly reloaded Config whenever the file is written. It returns a
// stop function. Grounded on the teacher's filesystem change detector
// (internal/reconciler/filesystem_detector.go), reduced to the single-file
// case this pipeline needs.
func Watch(path string, onChange func(Config)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		if errors.Is(err, os.ErrNotExist) {
			// Nothing to watch yet; the caller is running on defaults.
			return watcher.Close, nil
		}
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logging.Error("ConfigLoader", err, "reload of %s failed, keeping previous config", path)
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Error("ConfigLoader", err, "watcher error on %s", path)
			}
		}
	}()

	return watcher.Close, nil
}
