package config

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/invopop/jsonschema"
)

// verifyRequiredFields checks fields that must be set together
func verifyRequiredFields(cfg *Config) error {
	for i, f := range cfg.Sources.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			return fmt.Errorf("sources.feeds[%d].url is required", i)
		}
	}

	if cfg.State.Backend == "file" && cfg.State.Path == "" {
		return fmt.Errorf("state.path is required for the file backend")
	}

	// smtp is optional, but a configured host needs a sender
	if cfg.SMTP.Host != "" {
		if cfg.SMTP.From == "" {
			return fmt.Errorf("smtp.from is required when smtp.host is set")
		}
		if _, err := mail.ParseAddress(cfg.SMTP.From); err != nil {
			return fmt.Errorf("smtp.from is not a valid address: %w", err)
		}
		if cfg.SMTP.Port <= 0 {
			return fmt.Errorf("smtp.port is required when smtp.host is set")
		}
	}

	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() (*jsonschema.Schema, error) {
	r := jsonschema.Reflector{FieldNameTag: "yaml"}
	return r.Reflect(&Config{}), nil
}
