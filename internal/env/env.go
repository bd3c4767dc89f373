package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/voicemagic/internal/envvar"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	// Development enables human-friendly output.
	Development Environment = "development"

	// Production enables machine-friendly output.
	Production Environment = "production"

	// Test is used by the test suites.
	Test Environment = "test"
)

// FromEnv reads the environment from VOICEMAGIC_ENV, defaulting to Development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.VoicemagicEnv))
}

// Parse converts a raw value into an Environment.
func Parse(raw string) Environment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prod", "production":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

// IsProduction reports whether e is Production.
func (e Environment) IsProduction() bool {
	return e == Production
}

func (e Environment) String() string {
	return string(e)
}
