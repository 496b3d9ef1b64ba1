package spec

// ProjectSpec is the top-level description of a case map project: where the
// geography, density and statistics sources live and how they are sampled.
type ProjectSpec struct {
	SpecVersion string   `yaml:"spec_version" json:"spec_version"`
	Sources     Sources  `yaml:"sources" json:"sources"`
	Sampling    Sampling `yaml:"sampling" json:"sampling"`
	Render      Render   `yaml:"render" json:"render"`
	Clock       Clock    `yaml:"clock" json:"clock"`
	Server      Server   `yaml:"server" json:"server"`
	Cache       Cache    `yaml:"cache" json:"cache"`
	Storage     Storage  `yaml:"storage" json:"storage"`
}

type Sources struct {
	Geography  []GeographySource `yaml:"geography" json:"geography"`
	Densities  []string          `yaml:"densities" json:"densities"`
	Statistics StatisticsSources `yaml:"statistics" json:"statistics"`
	Raster     string            `yaml:"raster,omitempty" json:"raster,omitempty"`
}

// GeographySource is one GeoJSON feature collection. Countries listed in
// ExcludeCountries are dropped from it, typically because a finer
// sub-national layer covers them.
type GeographySource struct {
	URI              string   `yaml:"uri" json:"uri"`
	ExcludeCountries []string `yaml:"exclude_countries,omitempty" json:"exclude_countries,omitempty"`
}

type StatisticsSources struct {
	Confirmed []string `yaml:"confirmed" json:"confirmed"`
	Recovered []string `yaml:"recovered" json:"recovered"`
	Deaths    []string `yaml:"deaths" json:"deaths"`

	// CountryAliases renames statistics countries to geography names.
	CountryAliases map[string]string `yaml:"country_aliases" json:"country_aliases"`
	// SubnationalOnly lists raw country names whose country-level rows are
	// ignored because sub-national rows are provided.
	SubnationalOnly []string `yaml:"subnational_only" json:"subnational_only"`
}

type Sampling struct {
	Decimation            int     `yaml:"decimation" json:"decimation"`
	DecimationConstrained int     `yaml:"decimation_constrained" json:"decimation_constrained"`
	Seed                  int64   `yaml:"seed" json:"seed"`
	CellSizeDeg           float64 `yaml:"cell_size_deg" json:"cell_size_deg"`
	DefaultRecoveryDays   int     `yaml:"default_recovery_days" json:"default_recovery_days"`
	Workers               int     `yaml:"workers" json:"workers"`
	RasterStep            int     `yaml:"raster_step" json:"raster_step"`
}

// Render holds the display settings handed to the renderer with the points.
type Render struct {
	ExtinctionDays  float64 `yaml:"extinction_days" json:"extinction_days"`
	KeepDeaths      bool    `yaml:"keep_deaths" json:"keep_deaths"`
	UseRecoveryData bool    `yaml:"use_recovery_data" json:"use_recovery_data"`
}

type Clock struct {
	DaysPerSecond float64 `yaml:"days_per_second" json:"days_per_second"`
	TickHz        float64 `yaml:"tick_hz" json:"tick_hz"`
}

type Server struct {
	Port int `yaml:"port" json:"port"`
}

type Cache struct {
	RedisAddr string `yaml:"redis_addr" json:"redis_addr"`
	TTL       string `yaml:"ttl" json:"ttl"`
}

type Storage struct {
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"-"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
	Region          string `yaml:"region" json:"region"`
}
