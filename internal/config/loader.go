package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/ekisa-team/voicemagic/internal/voice"
)

//go:embed schema/voicemagic.v1.schema.json
var embeddedSchema []byte

const embeddedSchemaURL = "https://voicemagic.local/schema/voicemagic.v1.schema.json"

// LoadAndValidate loads the YAML config at path, validates it against the
// schema and overlays VOICEMAGIC_* environment variables. An empty schemaPath
// selects the schema compiled into the binary.
func LoadAndValidate(path, schemaPath string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: invalid YAML: %w", err)
	}

	schema, err := compileSchema(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema: %w", err)
	}

	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal into Config struct: %w", err)
	}

	if err := overlayEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// FromEnv returns the defaults overlaid with VOICEMAGIC_* environment
// variables. It is used when no config file exists.
func FromEnv() (*Config, error) {
	config := Default()
	if err := overlayEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPPort == c.Server.GRPCPort {
		errs = append(errs, fmt.Errorf("http_port and grpc_port must differ (both %d)", c.Server.HTTPPort))
	}
	if _, ok := voice.Default().Resolve(c.Synthesis.DefaultVoice); !ok {
		errs = append(errs, fmt.Errorf("unknown default_voice %q", c.Synthesis.DefaultVoice))
	}
	if c.Synthesis.Timeout <= 0 {
		errs = append(errs, errors.New("synthesis timeout must be positive"))
	}
	if c.Synthesis.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("max_concurrent must be positive"))
	}
	if c.Synthesis.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests_per_minute must be positive"))
	}
	if c.Synthesis.MaxTextLength <= 0 {
		errs = append(errs, errors.New("max_text_length must be positive"))
	}
	if strings.TrimSpace(c.Storage.OutputDir) == "" {
		errs = append(errs, errors.New("storage output_dir must not be empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

func overlayEnv(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("config: failed to parse environment: %w", err)
	}
	return nil
}

func compileSchema(schemaPath string) (*jsonschema.Schema, error) {
	if schemaPath != "" {
		return jsonschema.Compile(schemaPath)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(embeddedSchemaURL, bytes.NewReader(embeddedSchema)); err != nil {
		return nil, err
	}

	return compiler.Compile(embeddedSchemaURL)
}
