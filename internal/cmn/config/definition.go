package config

// Definition holds the configuration as it appears in external sources.
// Each field maps to a configuration key in the YAML file or environment.
type Definition struct {
	// Debug toggles debug logging.
	Debug bool `mapstructure:"debug"`

	// LogFormat defines the output format for log messages.
	// Available options: "json", "text"
	LogFormat string `mapstructure:"log_format"`

	// LogFile, when set, receives a copy of every log line.
	LogFile string `mapstructure:"log_file"`

	// API configures the dashboard API the CLI talks to.
	API APIDef `mapstructure:"api"`

	// Server configures the node registry service.
	Server ServerDef `mapstructure:"server"`

	// Paths holds filesystem locations.
	Paths PathsDef `mapstructure:"paths"`

	// Features toggles optional components.
	Features FeaturesDef `mapstructure:"features"`
}

// APIDef is the dashboard API section.
type APIDef struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout is a duration string such as "30s".
	Timeout string `mapstructure:"timeout"`
	Token   string `mapstructure:"token"`
}

// ServerDef is the node registry service section.
type ServerDef struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AllowedOrigins lists the CORS origins accepted by the service.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PathsDef is the paths section.
type PathsDef struct {
	DataDir  string `mapstructure:"data_dir"`
	NodesDir string `mapstructure:"nodes_dir"`
}

// FeaturesDef is the features section.
type FeaturesDef struct {
	// DNSServerCreate is set when the DNS server companion is deployed,
	// which makes DNSFault selectable.
	DNSServerCreate bool `mapstructure:"dns_server_create"`
}
