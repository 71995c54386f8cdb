package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Secrets are deployment-environment values, loaded from the process
// environment (a .env file may seed it; see cmd/bot). They are kept apart
// from Config so the config file can be committed and hot-reloaded while
// credentials never touch disk here.
type Secrets struct {
	BotToken       string `envconfig:"BOT_TOKEN" required:"true"`
	AirtableAPIKey string `envconfig:"AIRTABLE_API_KEY" required:"true"`

	// Port overrides relay.addr when set (platform convention).
	Port string `envconfig:"PORT"`
}

func LoadSecrets() (Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return Secrets{}, fmt.Errorf("parsing environment: %w", err)
	}
	return s, nil
}
