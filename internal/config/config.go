// Package config loads the process configuration from environment
// variables, matching the surface documented in SPEC_FULL.md §6/§6A.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full set of environment-driven tunables.
type Config struct {
	EmbedModel        string        `envconfig:"EMBED_MODEL" default:"intfloat/multilingual-e5-small"`
	LowConfSoftmax    float64       `envconfig:"LOWCONF_SOFTMAX" default:"0.55"`
	LowConfTopSim     float64       `envconfig:"LOWCONF_TOPSIM" default:"0.48"`
	EnableTranslation bool          `envconfig:"ENABLE_TRANSLATION" default:"false"`
	CORSOrigins       []string      `envconfig:"CORS_ORIGINS" default:"*"`
	ReindexTimeoutSec int           `envconfig:"REINDEX_TIMEOUT_SEC" default:"300"`
	AdminToken        string        `envconfig:"ADMIN_TOKEN" default:""`
	RateLimitSearch   int           `envconfig:"RATE_LIMIT_SEARCH" default:"60"`
	RateLimitAdmin    int           `envconfig:"RATE_LIMIT_ADMIN" default:"20"`
	AllowTestRateKey  bool          `envconfig:"ALLOW_TEST_RATE_KEY" default:"false"`
	DisableUALogging  bool          `envconfig:"DISABLE_UA_LOGGING" default:"false"`
	BuildTime         string        `envconfig:"BUILD_TIME" default:""`
	GitSHA            string        `envconfig:"GIT_SHA" default:""`
	Host              string        `envconfig:"HOST" default:"0.0.0.0"`
	Port              int           `envconfig:"PORT" default:"8080"`
	CatalogPath       string        `envconfig:"CATALOG_PATH" default:"data/catalog.json"`
	DataDir           string        `envconfig:"DATA_DIR" default:"data"`
}

// ReindexTimeout returns the configured reindex bound as a time.Duration.
func (c Config) ReindexTimeout() time.Duration {
	return time.Duration(c.ReindexTimeoutSec) * time.Second
}

// Load reads Config from the process environment, applying the documented
// defaults for any variable left unset.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
