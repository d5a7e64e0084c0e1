package models

// CollectorConfig is the root of the collector YAML configuration file.
type CollectorConfig struct {
	Collector Collector `yaml:"collector" json:"collector"`
	Pending   Pending   `yaml:"pending" json:"pending"`
	Journal   Journal   `yaml:"journal" json:"journal"`
	Admin     Admin     `yaml:"admin" json:"admin"`
}

type Collector struct {
	Name           string          `yaml:"name" json:"name"`
	Version        string          `yaml:"version" json:"version"`
	LogFile        string          `yaml:"log_file" json:"logFile"`
	Verbose        bool            `yaml:"verbose" json:"verbose"`
	Port           int             `yaml:"port" json:"port"`
	Path           string          `yaml:"path" json:"path"`
	TopicName      string          `yaml:"topic_name" json:"topicName"`
	APIVersion     string          `yaml:"api_version" json:"apiVersion"`
	Username       string          `yaml:"username" json:"username"`
	Password       string          `yaml:"password" json:"-"`
	Schema         SchemaFiles     `yaml:"schema" json:"schema"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes" json:"maxBodyBytes"`
	ReadTimeoutMs  int             `yaml:"read_timeout_ms" json:"readTimeoutMs"`
	WriteTimeoutMs int             `yaml:"write_timeout_ms" json:"writeTimeoutMs"`
	ChaosInjection *ChaosInjection `yaml:"chaos_injection" json:"chaosInjection"`
}

// SchemaFiles names the JSON Schema documents merged into the three
// validation slots. BaseFile gates all of them.
type SchemaFiles struct {
	BaseFile        string `yaml:"base_file" json:"baseFile"`
	EventFile       string `yaml:"event_file" json:"eventFile"`
	ThrottleFile    string `yaml:"throttle_file" json:"throttleFile"`
	TestControlFile string `yaml:"test_control_file" json:"testControlFile"`
}

type Pending struct {
	Backend string      `yaml:"backend" json:"backend"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	Key      string `yaml:"key" json:"key"`
}

type Journal struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Driver          string `yaml:"driver" json:"driver"`
	DSN             string `yaml:"dsn" json:"dsn"`
	BatchSize       int    `yaml:"batch_size" json:"batchSize"`
	FlushIntervalMs int    `yaml:"flush_interval_ms" json:"flushIntervalMs"`
	MaxWorkers      int    `yaml:"max_workers" json:"maxWorkers"`
}

type Admin struct {
	Port      int     `yaml:"port" json:"port"`
	RateRPS   float64 `yaml:"rate_rps" json:"rateRps"`
	RateBurst int     `yaml:"rate_burst" json:"rateBurst"`
}

type LogDescriptor struct {
	Name    string
	Version string
	Path    string
	File    bool
	Logger  bool
	Verbose bool
}

type ChaosInjection struct {
	Latency Latency `yaml:"latency" json:"latency"`
	Abort   Abort   `yaml:"abort" json:"abort"`
}

type Latency struct {
	Time        int    `yaml:"time" json:"time"`
	Probability string `yaml:"probability" json:"probability"`
}

type Abort struct {
	Code        int    `yaml:"code" json:"code"`
	Probability string `yaml:"probability" json:"probability"`
}

type LogSettings struct {
	Console            bool   `yaml:"console"`
	BeautifyConsoleLog bool   `yaml:"beautify_console"`
	File               bool   `yaml:"file"`
	Path               string `yaml:"path"`
	MinLevel           string `yaml:"min_level"`
	RotationMaxSizeMB  int    `yaml:"rotation_max_size_mb"`
	MaxAgeDay          int    `yaml:"max_age_day"`
	MaxBackups         int    `yaml:"max_backups"`
	Compress           bool   `yaml:"compress"`
}
