package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/lofcall/pkg/lof"
	"github.com/mchmarny/lofcall/pkg/splice"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600
)

// Config represents app config object.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds"`
	Sources    Sources    `yaml:"sources"`
}

// Thresholds holds the pipeline options and the pass-through collaborator cutoffs.
type Thresholds struct {
	FilterPosition         float64 `yaml:"filter_position"`
	MinIntronSize          int64   `yaml:"min_intron_size"`
	CheckCompleteCDS       bool    `yaml:"check_complete_cds"`
	DeNovoDonorCutoff      float64 `yaml:"denovo_donor_cutoff"`
	ApplyAll               bool    `yaml:"apply_all"`
	ReportFeatures         bool    `yaml:"report_features"`
	WeakDonorCutoff        float64 `yaml:"weak_donor_cutoff"`
	DonorDisruptionCutoff  float64 `yaml:"donor_disruption_cutoff"`
	AcceptorDisruption     float64 `yaml:"acceptor_disruption_cutoff"`
	MaxScanDistance        int64   `yaml:"max_scan_distance"`
	DonorRescueCutoff      float64 `yaml:"donor_rescue_cutoff"`
	AcceptorRescueCutoff   float64 `yaml:"acceptor_rescue_cutoff"`
	MaxDeNovoDonorDistance int64   `yaml:"max_denovo_donor_distance"`
	SREFlankSize           int64   `yaml:"sre_flanksize"`
}

// Sources points at the model and data files. Empty values disable the
// checks that depend on them.
type Sources struct {
	ModelDir       string `yaml:"model_dir,omitempty"`
	Kernel         string `yaml:"kernel,omitempty"`
	ReferenceFasta string `yaml:"reference_fasta,omitempty"`
	AncestralFasta string `yaml:"ancestral_fasta,omitempty"`
	Database       string `yaml:"database,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Thresholds: Thresholds{
			FilterPosition:         0.05,
			MinIntronSize:          15,
			DeNovoDonorCutoff:      0.98,
			WeakDonorCutoff:        -4,
			DonorDisruptionCutoff:  0.98,
			AcceptorDisruption:     0.98,
			MaxScanDistance:        15,
			DonorRescueCutoff:      0.9,
			AcceptorRescueCutoff:   0.9,
			MaxDeNovoDonorDistance: 200,
			SREFlankSize:           100,
		},
		Sources: Sources{
			Kernel: "linear",
		},
	}
}

// Options maps the thresholds onto the classifier options.
func (c *Config) Options() lof.Options {
	t := c.Thresholds
	return lof.Options{
		FilterPosition:    t.FilterPosition,
		MinIntronSize:     t.MinIntronSize,
		CheckCompleteCDS:  t.CheckCompleteCDS,
		DeNovoDonorCutoff: t.DeNovoDonorCutoff,
		ApplyAll:          t.ApplyAll,
		ReportFeatures:    t.ReportFeatures,
	}
}

// SpliceThresholds maps the thresholds onto the splice collaborators.
func (c *Config) SpliceThresholds() splice.Thresholds {
	t := c.Thresholds
	return splice.Thresholds{
		DonorDisruptionCutoff:    t.DonorDisruptionCutoff,
		AcceptorDisruptionCutoff: t.AcceptorDisruption,
		DonorRescueCutoff:        t.DonorRescueCutoff,
		AcceptorRescueCutoff:     t.AcceptorRescueCutoff,
		MaxScanDistance:          t.MaxScanDistance,
		MaxDeNovoDonorDistance:   t.MaxDeNovoDonorDistance,
		WeakDonorCutoff:          t.WeakDonorCutoff,
		SREFlankSize:             t.SREFlankSize,
	}
}

// Validate rejects thresholds the pipeline cannot use.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.MinIntronSize < 0 {
		return errors.Errorf("min_intron_size must not be negative: %d", t.MinIntronSize)
	}
	if t.DeNovoDonorCutoff < 0 || t.DeNovoDonorCutoff > 1 {
		return errors.Errorf("denovo_donor_cutoff must be within [0, 1]: %v", t.DeNovoDonorCutoff)
	}
	if t.MaxScanDistance < 0 || t.MaxDeNovoDonorDistance < 0 {
		return errors.New("scan distances must not be negative")
	}
	return nil
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, ConfigFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", ConfigFileName)
	}
	return nil
}

// Load reads the config file at path. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}
	return c, nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(dirPath, dirMode)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, ConfigFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	return Load(path)
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		err := os.Mkdir(dir, dirMode)
		if err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir: %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
