package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port      string         `mapstructure:"port"`
	JWTSecret string         `mapstructure:"jwt_secret"`
	MongoSQL  DatabaseConfig `mapstructure:"mongo"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Postgres  DatabaseConfig `mapstructure:"pg"`
	Room      RoomConfig     `mapstructure:"chat"`
	Reports   ReportEvents   `mapstructure:"report_events"`
}

// ChatClient definition chat_client YAML structure
type ChatClient struct {
	Server       string        `mapstructure:"server"`
	Token        string        `mapstructure:"token"`
	TypingQuiet  time.Duration `mapstructure:"typing_quiet"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	RequestLimit time.Duration `mapstructure:"request_timeout"`
}

// RoomConfig definition the single community room setting
type RoomConfig struct {
	Name           string        `mapstructure:"room"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	MaxTextLength  int           `mapstructure:"max_text_length"`
	SystemUserID   string        `mapstructure:"system_user_id"`
	SystemUserName string        `mapstructure:"system_user_name"`
	SendRate       float64       `mapstructure:"send_rate"`
	SendBurst      int           `mapstructure:"send_burst"`
	HTTPRateMax    int           `mapstructure:"http_rate_max"`
	HTTPRateWindow time.Duration `mapstructure:"http_rate_window"`
	MemberCacheTTL time.Duration `mapstructure:"member_cache_ttl"`
}

// ReportEvents definition where report create/update events come from
type ReportEvents struct {
	Driver        string   `mapstructure:"driver"` // rabbitmq | kafka | none
	URL           string   `mapstructure:"url"`
	Queue         string   `mapstructure:"queue"`
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int    `mapstructure:"redis_db"`
	Addr    string `mapstructure:"addr"` // empty means sentinel from .env
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// Enabled report whether a database section was filled in
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// ApplyDefaults fill zero values with the room defaults
func (r *RoomConfig) ApplyDefaults() {
	if r.Name == "" {
		r.Name = "community-chat"
	}
	if r.HistoryLimit <= 0 {
		r.HistoryLimit = 50
	}
	if r.MaxTextLength <= 0 {
		r.MaxTextLength = 500
	}
	if r.SystemUserID == "" {
		r.SystemUserID = "system"
	}
	if r.SystemUserName == "" {
		r.SystemUserName = "System"
	}
	if r.SendRate <= 0 {
		r.SendRate = 5
	}
	if r.SendBurst <= 0 {
		r.SendBurst = 10
	}
	if r.HTTPRateMax <= 0 {
		r.HTTPRateMax = 100
	}
	if r.HTTPRateWindow <= 0 {
		r.HTTPRateWindow = 15 * time.Minute
	}
	if r.MemberCacheTTL <= 0 {
		r.MemberCacheTTL = 10 * time.Minute
	}
}
