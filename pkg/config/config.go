package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Timezone      string        `yaml:"timezone" json:"timezone" jsonschema:"default=Europe/London,description=IANA time zone used for the run gate and all state dates"`
	SendHourLocal int           `yaml:"send_hour_local" json:"send_hour_local" jsonschema:"default=7,minimum=0,maximum=23,description=Local hour of the authoritative scheduled run"`
	GateWindow    time.Duration `yaml:"gate_window" json:"gate_window" jsonschema:"default=20m,description=Width of the run window from the top of send_hour_local"`
	AlwaysSend    bool          `yaml:"always_send" json:"always_send" jsonschema:"default=true,description=Deliver a digest even when nothing changed"`
	MaxCandidates int           `yaml:"max_candidates" json:"max_candidates" jsonschema:"default=25,description=Maximum changes summarized per run (0 disables the cap)"`
	Keywords      []string      `yaml:"keywords" json:"keywords" jsonschema:"description=Pre-filter keywords (an empty list lets every item through to scoring)"`

	Relevance  RelevanceConfig  `yaml:"relevance" json:"relevance" jsonschema:"description=Relevance scoring terms and thresholds"`
	Sources    SourcesConfig    `yaml:"sources" json:"sources" jsonschema:"description=Upstream sources"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Full-text fetch settings"`
	LLM        LLMConfig        `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for summaries"`
	State      StateConfig      `yaml:"state" json:"state" jsonschema:"description=State store"`
	SMTP       SMTPConfig       `yaml:"smtp" json:"smtp" jsonschema:"description=Digest delivery over SMTP"`
	Server     ServerConfig     `yaml:"server" json:"server" jsonschema:"description=Daemon mode HTTP server"`
}

// RelevanceConfig holds term lists for the relevance scorer
type RelevanceConfig struct {
	StrongTerms   []string `yaml:"strong_terms" json:"strong_terms" jsonschema:"description=Terms worth +3 each when present"`
	MediumTerms   []string `yaml:"medium_terms" json:"medium_terms" jsonschema:"description=Terms worth +1 each when present"`
	ExcludeTerms  []string `yaml:"exclude_terms" json:"exclude_terms" jsonschema:"description=Phrases worth -3 each when present"`
	CoreOverrides []string `yaml:"core_overrides" json:"core_overrides" jsonschema:"description=Phrases that pass the keyword pre-filter on their own"`
	MinScore      int      `yaml:"min_score" json:"min_score" jsonschema:"default=2,description=Minimum score for an item to become a candidate"`
	CriticalScore int      `yaml:"critical_score" json:"critical_score" jsonschema:"default=6,description=Score at which a change is shown as a critical alert"`
}

// GovUKConfig holds GOV.UK search API settings
type GovUKConfig struct {
	BaseURL       string   `yaml:"base_url" json:"base_url" jsonschema:"default=https://www.gov.uk,description=GOV.UK base URL"`
	Organisations []string `yaml:"organisations" json:"organisations" jsonschema:"description=Organisation slugs to search"`
	LookbackDays  int      `yaml:"lookback_days" json:"lookback_days" jsonschema:"default=3,minimum=1,description=Search window in days"`
	DocumentTypes []string `yaml:"document_types" json:"document_types" jsonschema:"description=Document type filter"`
}

// FeedConfig is a single RSS or Atom source
type FeedConfig struct {
	Name string `yaml:"name" json:"name" jsonschema:"required,description=Source label shown in the digest"`
	URL  string `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
}

// SourcesConfig holds all upstream sources
type SourcesConfig struct {
	GovUK      GovUKConfig   `yaml:"govuk" json:"govuk" jsonschema:"description=GOV.UK search API"`
	Feeds      []FeedConfig  `yaml:"feeds" json:"feeds" jsonschema:"description=RSS and Atom feeds"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout per source"`
	MaxEntries int           `yaml:"max_entries" json:"max_entries" jsonschema:"default=60,description=Maximum entries taken from one feed"`
}

// ExtractionConfig holds full-text fetch settings
type ExtractionConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Fetch timeout per item"`
	MaxConcurrent int           `yaml:"max_concurrent" json:"max_concurrent" jsonschema:"default=5,description=Maximum concurrent fetches"`
	MaxChars      int           `yaml:"max_chars" json:"max_chars" jsonschema:"default=20000,description=Cap on extracted page text"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User agent override (browser-like by default)"`
}

// LLMConfig holds LLM configuration for summaries
type LLMConfig struct {
	Endpoint      string        `yaml:"endpoint" json:"endpoint" jsonschema:"default=https://api.openai.com/v1,description=OpenAI-compatible API endpoint"`
	APIKey        string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (summaries fall back to a notice without it)"`
	Model         string        `yaml:"model" json:"model" jsonschema:"default=gpt-4o-mini,description=Model name"`
	Temperature   float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.2,description=Temperature for response generation"`
	MaxTokens     int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=700,description=Maximum tokens in response"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=Request timeout"`
	SystemPrompt  string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt override"`
	MaxInputChars int           `yaml:"max_input_chars" json:"max_input_chars" jsonschema:"default=12000,description=Cap on document text sent to the model"`
}

// StateConfig selects the state store backend
type StateConfig struct {
	Backend string `yaml:"backend" json:"backend" jsonschema:"default=file,enum=file,enum=sqlite,description=State backend"`
	Path    string `yaml:"path" json:"path" jsonschema:"default=.cache/state.json,description=State file for the file backend"`
	DSN     string `yaml:"dsn" json:"dsn" jsonschema:"description=Data source name for the sqlite backend"`
}

// SMTPConfig holds mail delivery settings
type SMTPConfig struct {
	Host        string `yaml:"host" json:"host" jsonschema:"description=SMTP server (delivery is disabled when empty)"`
	Port        int    `yaml:"port" json:"port" jsonschema:"default=587,description=SMTP port"`
	Username    string `yaml:"username" json:"username" jsonschema:"description=SMTP user"`
	Password    string `yaml:"password" json:"password" jsonschema:"description=SMTP password"`
	From        string `yaml:"from" json:"from" jsonschema:"description=Sender address"`
	To          string `yaml:"to" json:"to" jsonschema:"description=Primary recipients separated by commas"`
	MailingList string `yaml:"mailing_list" json:"mailing_list" jsonschema:"default=config/mailing_list.txt,description=File with one recipient per line"`
}

// ServerConfig holds daemon mode settings
type ServerConfig struct {
	Listen          string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	TriggerInterval time.Duration `yaml:"trigger_interval" json:"trigger_interval" jsonschema:"default=10m,description=Interval of scheduled triggers (at most gate_window so a tick lands in every window)"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
}

// Default returns configuration with all defaults applied
func Default() Config {
	return Config{
		Timezone:      "Europe/London",
		SendHourLocal: 7,
		GateWindow:    20 * time.Minute,
		AlwaysSend:    true,
		MaxCandidates: 25,
		Keywords: []string{"immigration", "visa", "asylum", "sponsor", "home office", "border", "nationality",
			"citizenship", "refugee", "deportation", "right to work", "right to rent", "settlement", "tribunal"},
		Relevance: RelevanceConfig{
			StrongTerms: []string{"immigration rules", "statement of changes", "cpin",
				"country policy and information note", "caseworker guidance", "staff guidance", "sponsor guidance",
				"sponsor licence suspended", "sponsor license suspended", "sponsor licence revoked",
				"sponsor license revoked", "civil penalty", "compliance visit"},
			MediumTerms: []string{"appendix", "fees", "fee increase", "fee changes", "comes into force",
				"effective from", "takes effect", "in force", "visa", "asylum", "immigration", "home office",
				"sponsor", "right to work", "right to rent", "eu settlement scheme", "upper tribunal"},
			ExcludeTerms: []string{"freedom of information", "foi release", "transparency data", "job vacancies",
				"procurement", "corporate report", "spending over", "workforce management information"},
			CoreOverrides: []string{"statement of changes", "immigration rules", "cpin",
				"country policy and information note", "caseworker guidance", "staff guidance", "sponsor guidance"},
			MinScore:      2,
			CriticalScore: 6,
		},
		Sources: SourcesConfig{
			GovUK: GovUKConfig{
				BaseURL:       "https://www.gov.uk",
				Organisations: []string{"home-office", "uk-visas-and-immigration"},
				LookbackDays:  3,
				DocumentTypes: []string{"guidance", "news_story", "policy_paper", "consultation", "publication",
					"statistical_data_set"},
			},
			Feeds: []FeedConfig{
				{Name: "Parliament (Bills)", URL: "https://bills.parliament.uk/rss/allbills.rss"},
				{Name: "legislation.gov.uk (New)", URL: "https://www.legislation.gov.uk/new/data.feed"},
			},
			Timeout:    30 * time.Second,
			MaxEntries: 60,
		},
		Extraction: ExtractionConfig{
			Timeout:       30 * time.Second,
			MaxConcurrent: 5,
			MaxChars:      20000,
		},
		LLM: LLMConfig{
			Endpoint:      "https://api.openai.com/v1",
			Model:         "gpt-4o-mini",
			Temperature:   0.2,
			MaxTokens:     700,
			Timeout:       60 * time.Second,
			MaxInputChars: 12000,
		},
		State: StateConfig{
			Backend: "file",
			Path:    ".cache/state.json",
		},
		SMTP: SMTPConfig{
			Port:        587,
			MailingList: "config/mailing_list.txt",
		},
		Server: ServerConfig{
			Listen:          ":8080",
			TriggerInterval: 10 * time.Minute,
			Timeout:         30 * time.Second,
		},
	}
}

// Load reads configuration from a YAML file. Keys absent from the file keep their defaults,
// so explicit zero values such as always_send: false or send_hour_local: 0 are respected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// fill values a present but blank key would leave unusable
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/London"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = "file"
	}
	if cfg.Sources.GovUK.BaseURL == "" {
		cfg.Sources.GovUK.BaseURL = "https://www.gov.uk"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	for i, f := range cfg.Sources.Feeds {
		if f.Name == "" {
			cfg.Sources.Feeds[i].Name = f.URL
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := verifyRequiredFields(&cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.SendHourLocal < 0 || cfg.SendHourLocal > 23 {
		return fmt.Errorf("send_hour_local must be between 0 and 23")
	}
	if cfg.GateWindow <= 0 || cfg.GateWindow > time.Hour {
		return fmt.Errorf("gate_window must be between 1ns and 1h")
	}
	if cfg.MaxCandidates < 0 {
		return fmt.Errorf("max_candidates must be non-negative")
	}
	if cfg.Relevance.CriticalScore < cfg.Relevance.MinScore {
		return fmt.Errorf("relevance.critical_score must not be below relevance.min_score")
	}

	if cfg.Sources.GovUK.LookbackDays < 1 {
		return fmt.Errorf("sources.govuk.lookback_days must be at least 1")
	}
	if cfg.Sources.Timeout < time.Second {
		return fmt.Errorf("sources timeout must be at least 1 second")
	}
	if cfg.Sources.MaxEntries < 1 {
		return fmt.Errorf("sources.max_entries must be at least 1")
	}

	if cfg.Extraction.Timeout < time.Second {
		return fmt.Errorf("extraction timeout must be at least 1 second")
	}
	if cfg.Extraction.MaxConcurrent < 1 {
		return fmt.Errorf("extraction.max_concurrent must be at least 1")
	}
	if cfg.Extraction.MaxChars < 1 {
		return fmt.Errorf("extraction.max_chars must be at least 1")
	}

	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.MaxInputChars < 1 {
		return fmt.Errorf("llm.max_input_chars must be at least 1")
	}

	switch cfg.State.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("state.backend must be file or sqlite, got %q", cfg.State.Backend)
	}

	if cfg.Server.TriggerInterval <= 0 || cfg.Server.TriggerInterval > cfg.GateWindow {
		return fmt.Errorf("server.trigger_interval must be positive and not longer than gate_window")
	}
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	return nil
}

// Location returns the configured time zone, validated by Load
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
