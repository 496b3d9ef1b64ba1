package spec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the file name LoadProject looks for.
const ProjectFile = "casemap.yaml"

// ErrNoProject is returned when a project directory has no project file.
var ErrNoProject = errors.New("no " + ProjectFile + " found")

// Defaults applied by Load when a field is left unset.
const (
	DefaultDecimation            = 10
	DefaultDecimationConstrained = 30
	DefaultRecoveryDays          = 14
	DefaultCellSizeDeg           = 360.0 / 4096
	DefaultDaysPerSecond         = 4
	DefaultTickHz                = 60
	DefaultPort                  = 3000
	DefaultExtinctionDays        = 30
)

// Load reads a project spec from a YAML file.
func Load(path string) (*ProjectSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	spec := ProjectSpec{
		Render: Render{KeepDeaths: true, UseRecoveryData: true},
	}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing spec YAML: %w", err)
	}

	spec.applyDefaults()
	spec.resolvePaths(filepath.Dir(path))
	return &spec, nil
}

// LoadProject loads a project spec from a project directory.
// It looks for casemap.yaml in the given directory.
func LoadProject(projectDir string) (*ProjectSpec, error) {
	specPath := filepath.Join(projectDir, ProjectFile)
	if _, err := os.Stat(specPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", projectDir, ErrNoProject)
	}
	return Load(specPath)
}

func (s *ProjectSpec) applyDefaults() {
	if s.Sampling.Decimation == 0 {
		s.Sampling.Decimation = DefaultDecimation
	}
	if s.Sampling.DecimationConstrained == 0 {
		s.Sampling.DecimationConstrained = DefaultDecimationConstrained
	}
	if s.Sampling.DefaultRecoveryDays == 0 {
		s.Sampling.DefaultRecoveryDays = DefaultRecoveryDays
	}
	if s.Sampling.CellSizeDeg == 0 {
		s.Sampling.CellSizeDeg = DefaultCellSizeDeg
	}
	if s.Sampling.RasterStep == 0 {
		s.Sampling.RasterStep = 1
	}
	if s.Render.ExtinctionDays == 0 {
		s.Render.ExtinctionDays = DefaultExtinctionDays
	}
	if s.Clock.DaysPerSecond == 0 {
		s.Clock.DaysPerSecond = DefaultDaysPerSecond
	}
	if s.Clock.TickHz == 0 {
		s.Clock.TickHz = DefaultTickHz
	}
	if s.Server.Port == 0 {
		s.Server.Port = DefaultPort
	}
	if s.Sources.Statistics.CountryAliases == nil {
		s.Sources.Statistics.CountryAliases = map[string]string{"US": "United States of America"}
	}
	if s.Sources.Statistics.SubnationalOnly == nil {
		s.Sources.Statistics.SubnationalOnly = []string{"US"}
	}
}

// resolvePaths makes relative local source paths relative to the project
// directory. URIs with a scheme are left alone.
func (s *ProjectSpec) resolvePaths(dir string) {
	fix := func(p string) string {
		if p == "" || hasScheme(p) || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range s.Sources.Geography {
		s.Sources.Geography[i].URI = fix(s.Sources.Geography[i].URI)
	}
	for _, list := range [][]string{
		s.Sources.Densities,
		s.Sources.Statistics.Confirmed,
		s.Sources.Statistics.Recovered,
		s.Sources.Statistics.Deaths,
	} {
		for i := range list {
			list[i] = fix(list[i])
		}
	}
	s.Sources.Raster = fix(s.Sources.Raster)
}

func hasScheme(uri string) bool {
	for i, c := range uri {
		switch {
		case c == ':':
			return i > 1 && len(uri) > i+2 && uri[i+1:i+3] == "//"
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '+', c == '-', c == '.':
		default:
			return false
		}
	}
	return false
}

// ApplyEnv overrides spec fields from environment variables.
func (s *ProjectSpec) ApplyEnv(getenv func(string) string) error {
	if v := getenv("CASEMAP_DECIMATION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CASEMAP_DECIMATION: %w", err)
		}
		s.Sampling.Decimation = n
	}
	if v := getenv("CASEMAP_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CASEMAP_SEED: %w", err)
		}
		s.Sampling.Seed = n
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		s.Cache.RedisAddr = v
	}
	if v := getenv("MINIO_ENDPOINT"); v != "" {
		s.Storage.Endpoint = v
	}
	if v := getenv("MINIO_ACCESS_KEY"); v != "" {
		s.Storage.AccessKeyID = v
	}
	if v := getenv("MINIO_SECRET_KEY"); v != "" {
		s.Storage.SecretAccessKey = v
	}
	return nil
}

// EffectiveDecimation returns the decimation factor for the device class.
func (s *ProjectSpec) EffectiveDecimation(constrained bool) int {
	if constrained {
		return s.Sampling.DecimationConstrained
	}
	return s.Sampling.Decimation
}

// CacheTTL returns the parsed cache TTL. An unset or invalid TTL yields
// zero, meaning entries do not expire; the schema check reports invalid ones.
func (s *ProjectSpec) CacheTTL() time.Duration {
	d, err := time.ParseDuration(s.Cache.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
