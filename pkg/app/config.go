package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"civic-api/pkg/client"
	"civic-api/pkg/ingest"

	"github.com/joho/godotenv"
)

// LookupFunc returns the value of a named setting and whether it was present,
// with the same contract as os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// noEnv is a LookupFunc that finds nothing.
func noEnv(string) (string, bool) { return "", false }

// setting is a single ingest.Config tunable. The Key is the last element of
// the SSM parameter name (/civic/<env>/<Key>); the environment variable is
// CIVIC_ followed by the upper snake case Key.
type setting struct {
	Key   string
	apply func(c *ingest.Config, value string) error
}

// EnvName returns the process environment variable name for the setting.
func (s setting) EnvName() string {
	var sb strings.Builder
	sb.WriteString("CIVIC_")
	for i, r := range s.Key {
		if i > 0 && r >= 'A' && r <= 'Z' {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
	}
	return strings.ToUpper(sb.String())
}

var settings = []setting{
	{"MaxImageBytes", func(c *ingest.Config, v string) error { return parseInt64(v, &c.MaxImageBytes) }},
	{"MinImageBytes", func(c *ingest.Config, v string) error { return parseInt64(v, &c.MinImageBytes) }},
	{"MinDimension", func(c *ingest.Config, v string) error { return parseInt(v, &c.MinDimension) }},
	{"MaxDimension", func(c *ingest.Config, v string) error { return parseInt(v, &c.MaxDimension) }},
	{"SimilarityThreshold", func(c *ingest.Config, v string) error { return parseInt(v, &c.SimilarityThreshold) }},
	{"DuplicateWindowDays", func(c *ingest.Config, v string) error {
		days, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.DuplicateWindow = time.Duration(days * float64(24*time.Hour))
		return nil
	}},
	{"DuplicateScore", func(c *ingest.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			c.DuplicateScore = f
		}
		return err
	}},
	{"PhotoFolder", func(c *ingest.Config, v string) error {
		c.PhotoFolder = v
		return nil
	}},
	{"UploadTimeout", func(c *ingest.Config, v string) error {
		d, err := time.ParseDuration(v)
		if err == nil {
			c.UploadTimeout = d
		}
		return err
	}},
}

func parseInt(s string, dst *int) error {
	i, err := strconv.Atoi(s)
	if err == nil {
		*dst = i
	}
	return err
}

func parseInt64(s string, dst *int64) error {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		*dst = i
	}
	return err
}

// SettingKeys returns the names of the configurable ingest settings.
func SettingKeys() []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.Key
	}
	return keys
}

// SettingEnvName returns the environment variable for a setting key, or "" if the key is unknown.
func SettingEnvName(key string) string {
	for _, s := range settings {
		if s.Key == key {
			return s.EnvName()
		}
	}
	return ""
}

// ParameterPath returns the SSM Parameter Store path holding the ingest settings for an environment.
func ParameterPath(env string) string {
	return "/civic/" + env
}

// LoadDotEnv loads a .env file into the process environment, without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}

// LoadIngestConfig resolves the ingest configuration for an environment. Sources are
// applied from lowest to highest precedence: defaults, environment variables (as
// returned by lookup, which sees anything loaded by LoadDotEnv), then SSM parameters
// under ParameterPath(env). The resolved configuration must validate.
func LoadIngestConfig(ctx context.Context, env string, ps client.ParameterStore, lookup LookupFunc) (ingest.Config, error) {
	cfg := ingest.DefaultConfig()
	if lookup == nil {
		lookup = noEnv
	}
	var problems []string
	for _, s := range settings {
		if v, ok := lookup(s.EnvName()); ok && strings.TrimSpace(v) != "" {
			if err := s.apply(&cfg, strings.TrimSpace(v)); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %s", s.EnvName(), err))
			}
		}
	}
	params, err := ps.GetParametersByPath(ctx, ParameterPath(env))
	if err != nil {
		return cfg, fmt.Errorf("error reading ingest parameters: %w", err)
	}
	values := make(map[string]string, len(params))
	for _, p := range params {
		values[p.Key()] = strings.TrimSpace(p.Value)
	}
	for _, s := range settings {
		if v, ok := values[s.Key]; ok && v != "" {
			if err := s.apply(&cfg, v); err != nil {
				problems = append(problems, fmt.Sprintf("%s/%s: %s", ParameterPath(env), s.Key, err))
			}
		}
	}
	problems = append(problems, cfg.Validate()...)
	if len(problems) > 0 {
		return cfg, fmt.Errorf("invalid ingest configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}
