package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variable names for service credentials. Credentials never live
// in the config file.
const (
	EnvVolcAppID       = "DUBBIN_VOLC_APP_ID"
	EnvVolcAccessToken = "DUBBIN_VOLC_ACCESS_TOKEN"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAWSAccessKey    = "AWS_ACCESS_KEY_ID"
	EnvAWSSecretKey    = "AWS_SECRET_ACCESS_KEY"
)

// Credentials holds the secrets read from the environment.
type Credentials struct {
	VolcAppID       string
	VolcAccessToken string
	OpenAIAPIKey    string
}

// LoadCredentials reads service credentials from the environment.
func LoadCredentials() Credentials {
	return Credentials{
		VolcAppID:       strings.TrimSpace(os.Getenv(EnvVolcAppID)),
		VolcAccessToken: strings.TrimSpace(os.Getenv(EnvVolcAccessToken)),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv(EnvOpenAIAPIKey)),
	}
}

// ValidateCredentials confirms every credential a full run needs is present.
// Missing credentials are a configuration error surfaced before any phase
// runs.
func (c *Config) ValidateCredentials(creds Credentials) error {
	var missing []string
	if creds.VolcAppID == "" {
		missing = append(missing, EnvVolcAppID)
	}
	if creds.VolcAccessToken == "" {
		missing = append(missing, EnvVolcAccessToken)
	}
	if creds.OpenAIAPIKey == "" {
		missing = append(missing, EnvOpenAIAPIKey)
	}
	if c.ObjectStore.Bucket != "" {
		if os.Getenv(EnvAWSAccessKey) == "" || os.Getenv(EnvAWSSecretKey) == "" {
			missing = append(missing, EnvAWSAccessKey+"/"+EnvAWSSecretKey)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: set %s", strings.Join(missing, ", "))
	}
	return nil
}
