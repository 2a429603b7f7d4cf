package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ProjectConfig is the optional skilldeploy.yaml in the source root.
type ProjectConfig struct {
	Target          string   `yaml:"target,omitempty"`
	Manifest        string   `yaml:"manifest,omitempty"`
	Separator       string   `yaml:"separator,omitempty"`
	PrimaryDocument string   `yaml:"primary_document,omitempty"`
	MetadataFile    string   `yaml:"metadata_file,omitempty"`
	AuxiliaryDirs   []string `yaml:"auxiliary_dirs,omitempty"`
	Include         []string `yaml:"include,omitempty"`
	Exclude         []string `yaml:"exclude,omitempty"`
	Transient       []string `yaml:"transient,omitempty"`
	Concurrency     int      `yaml:"concurrency,omitempty"`
	EcosystemDepth  int      `yaml:"ecosystem_depth,omitempty"`
	FixReferences   *bool    `yaml:"fix_references,omitempty"`
	Timeout         string   `yaml:"timeout,omitempty"`
}

const ConfigFileName = "skilldeploy.yaml"

// Environment variables consulted between flags and the project file.
const (
	EnvTarget      = "SKILLDEPLOY_TARGET"
	EnvConcurrency = "SKILLDEPLOY_CONCURRENCY"
)

func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Resolve fills the fields of c that were not set on the command line.
// Precedence: flag > environment > project file > defaults.
//
// explicit reports whether the named flag was set. lookupEnv is usually
// os.LookupEnv. project may be nil. Relative paths from the project file are
// resolved against sourceRoot.
func Resolve(c *skilldeploy.DeploymentConfig, project *ProjectConfig, explicit func(flag string) bool, lookupEnv func(string) (string, bool)) error {
	if project == nil {
		project = &ProjectConfig{}
	}
	var errs []error

	if !explicit("target") {
		if v, ok := lookupEnv(EnvTarget); ok && v != "" {
			c.TargetRoot = v
		} else if project.Target != "" {
			c.TargetRoot = relativeTo(c.SourceRoot, project.Target)
		}
	}

	if !explicit("concurrency") {
		if v, ok := lookupEnv(EnvConcurrency); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s must be an integer, got %q: %w", EnvConcurrency, v, skilldeploy.ErrInvalidConfig))
			} else {
				c.Concurrency = n
			}
		} else if project.Concurrency != 0 {
			c.Concurrency = project.Concurrency
		}
	}

	if !explicit("manifest") && project.Manifest != "" {
		c.ManifestPath = relativeTo(c.SourceRoot, project.Manifest)
	}

	if !explicit("separator") && project.Separator != "" {
		if utf8.RuneCountInString(project.Separator) != 1 {
			errs = append(errs, fmt.Errorf("separator in %s must be a single character, got %q: %w", ConfigFileName, project.Separator, skilldeploy.ErrInvalidConfig))
		} else {
			c.Separator, _ = utf8.DecodeRuneInString(project.Separator)
		}
	}

	if !explicit("include") && len(project.Include) > 0 {
		c.Include = project.Include
	}
	if !explicit("exclude") && len(project.Exclude) > 0 {
		c.Exclude = project.Exclude
	}
	if !explicit("fix-references") && project.FixReferences != nil {
		c.FixReferences = *project.FixReferences
	}

	if !explicit("timeout") && project.Timeout != "" {
		d, err := time.ParseDuration(project.Timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid timeout in %s: %v: %w", ConfigFileName, err, skilldeploy.ErrInvalidConfig))
		} else {
			c.Timeout = d
		}
	}

	// No flags exist for these.
	if c.PrimaryDocument == "" {
		c.PrimaryDocument = project.PrimaryDocument
	}
	if c.MetadataFile == "" {
		c.MetadataFile = project.MetadataFile
	}
	if c.AuxiliaryDirs == nil && len(project.AuxiliaryDirs) > 0 {
		c.AuxiliaryDirs = project.AuxiliaryDirs
	}
	c.TransientPatterns = append(c.TransientPatterns, project.Transient...)
	if c.EcosystemDepth == 0 {
		c.EcosystemDepth = project.EcosystemDepth
	}

	return errors.Join(errs...)
}

func relativeTo(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}
