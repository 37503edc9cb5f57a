package app

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. It runs after the config file is applied so env takes precedence over
// the file, while flags applied afterwards stay highest.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.NewsAPIKey, "API_NEWSAPI", "NEWSAPI_KEY")
	setString(&cfg.NewsAPIURL, "NEWSAPI_URL")
	setString(&cfg.Query, "NEWS_QUERY")
	setString(&cfg.Language, "NEWS_LANGUAGE")
	setString(&cfg.FeedURL, "FEED_URL")
	setString(&cfg.OutDir, "OUT_DIR")
	setString(&cfg.UserAgent, "FETCH_USER_AGENT")
	setString(&cfg.LLMBackend, "LLM_BACKEND")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY", "API_OPENAI")

	if s := strings.TrimSpace(os.Getenv("FETCH_TIMEOUT")); s != "" {
		if d, ok := parseSeconds(s); ok {
			cfg.FetchTimeout = d
		} else {
			log.Warn().Str("FETCH_TIMEOUT", s).Msg("ignoring invalid duration")
		}
	}
	if s := os.Getenv("FETCH_MAX_CONCURRENT"); s != "" {
		if n, err := cast.ToIntE(strings.TrimSpace(s)); err == nil && n >= 0 {
			cfg.FetchMaxConcurrent = n
		} else {
			log.Warn().Str("FETCH_MAX_CONCURRENT", s).Msg("ignoring invalid number")
		}
	}

	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "yes", "on":
				*dst = true
			case "no", "off":
				*dst = false
			default:
				if b, err := cast.ToBoolE(s); err == nil {
					*dst = b
				}
			}
		}
	}
	setBool(&cfg.Forward, "FORWARD")
	setBool(&cfg.EnablePDF, "ENABLE_PDF")
	setBool(&cfg.Verbose, "VERBOSE")
}

// parseSeconds accepts a Go duration ("90s", "1m") or a bare number of
// seconds.
func parseSeconds(s string) (time.Duration, bool) {
	if n, err := cast.ToFloat64E(s); err == nil {
		d := time.Duration(n * float64(time.Second))
		return d, d > 0
	}
	d, err := cast.ToDurationE(s)
	return d, err == nil && d > 0
}
