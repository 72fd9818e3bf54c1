package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a secret using the *_FILE convention: when
// envName+"_FILE" is set its file content (trimmed) wins over envName.
// Neither set yields "". An unreadable file is an error that names the
// path but never the content.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}

// secretVars maps each secret's environment name to its config field.
func (c *Config) secretVars() map[string]*string {
	return map[string]*string{
		"GROQ_API_KEY":              &c.LLM.GroqAPIKey,
		"GEMINI_API_KEY":            &c.LLM.GeminiKey,
		"LORECRAFTER_S3_ACCESS_KEY": &c.Assets.S3.AccessKey,
		"LORECRAFTER_S3_SECRET_KEY": &c.Assets.S3.SecretKey,
		"LORECRAFTER_MQTT_PASSWORD": &c.Events.MQTT.Password,
	}
}

func (c *Config) resolveSecrets() error {
	for name, dest := range c.secretVars() {
		v, err := ResolveSecret(name)
		if err != nil {
			return err
		}
		if v != "" {
			*dest = v
		}
	}
	return nil
}

// HasLLMKey reports whether the configured provider has the key it needs.
func (c *Config) HasLLMKey() bool {
	switch c.LLM.Provider {
	case ProviderGroq:
		return c.LLM.GroqAPIKey != ""
	case ProviderGemini:
		return c.LLM.GeminiKey != ""
	default:
		return true
	}
}
