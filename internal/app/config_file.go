package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"golang.org/x/text/language"
	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	NewsAPI struct {
		URL string `yaml:"url" json:"url" toml:"url"`
		Key string `yaml:"key" json:"key" toml:"key"`
	} `yaml:"newsapi" json:"newsapi" toml:"newsapi"`

	Search struct {
		Query    string `yaml:"query" json:"query" toml:"query"`
		Language string `yaml:"language" json:"language" toml:"language"`
		SearchIn string `yaml:"searchIn" json:"searchIn" toml:"searchIn"`
		PageSize int    `yaml:"pageSize" json:"pageSize" toml:"pageSize"`
		SortBy   string `yaml:"sortBy" json:"sortBy" toml:"sortBy"`
		Feed     string `yaml:"feed" json:"feed" toml:"feed"`
		File     string `yaml:"file" json:"file" toml:"file"`
	} `yaml:"search" json:"search" toml:"search"`

	Fetch struct {
		Timeout       string `yaml:"timeout" json:"timeout" toml:"timeout"`
		MaxConcurrent int    `yaml:"maxConcurrent" json:"maxConcurrent" toml:"maxConcurrent"`
		UserAgent     string `yaml:"userAgent" json:"userAgent" toml:"userAgent"`
	} `yaml:"fetch" json:"fetch" toml:"fetch"`

	LLM struct {
		Forward    *bool  `yaml:"forward" json:"forward" toml:"forward"`
		Backend    string `yaml:"backend" json:"backend" toml:"backend"`
		BaseURL    string `yaml:"base" json:"base" toml:"base"`
		Model      string `yaml:"model" json:"model" toml:"model"`
		APIKey     string `yaml:"key" json:"key" toml:"key"`
		Prompt     string `yaml:"prompt" json:"prompt" toml:"prompt"`
		PromptFile string `yaml:"promptFile" json:"promptFile" toml:"promptFile"`
	} `yaml:"llm" json:"llm" toml:"llm"`

	OutDir    string `yaml:"outDir" json:"outDir" toml:"outDir"`
	EnablePDF bool   `yaml:"enablePDF" json:"enablePDF" toml:"enablePDF"`
	Verbose   bool   `yaml:"verbose" json:"verbose" toml:"verbose"`
}

// LoadConfigFile reads YAML, JSON or TOML into FileConfig. The format follows
// the extension; unknown extensions try YAML then JSON.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	if fc.LLM.Prompt == "" && fc.LLM.PromptFile != "" {
		p := fc.LLM.PromptFile
		if !filepath.IsAbs(p) {
			p = filepath.Join(filepath.Dir(path), p)
		}
		pb, err := os.ReadFile(p)
		if err != nil {
			return fc, fmt.Errorf("read prompt file: %w", err)
		}
		fc.LLM.Prompt = string(pb)
	}
	return fc, nil
}

// ApplyFileConfig overlays every non-zero value of fc onto cfg. It runs on
// top of DefaultConfig and before env and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.NewsAPIURL, fc.NewsAPI.URL)
	set(&cfg.NewsAPIKey, fc.NewsAPI.Key)
	set(&cfg.Query, fc.Search.Query)
	set(&cfg.Language, fc.Search.Language)
	set(&cfg.SearchIn, fc.Search.SearchIn)
	set(&cfg.SortBy, fc.Search.SortBy)
	set(&cfg.FeedURL, fc.Search.Feed)
	set(&cfg.SavedSearch, fc.Search.File)
	if fc.Search.PageSize > 0 {
		cfg.PageSize = fc.Search.PageSize
	}

	if fc.Fetch.Timeout != "" {
		d, ok := parseSeconds(fc.Fetch.Timeout)
		if !ok {
			return fmt.Errorf("config: invalid fetch.timeout %q", fc.Fetch.Timeout)
		}
		cfg.FetchTimeout = d
	}
	if fc.Fetch.MaxConcurrent > 0 {
		cfg.FetchMaxConcurrent = fc.Fetch.MaxConcurrent
	}
	set(&cfg.UserAgent, fc.Fetch.UserAgent)

	if fc.LLM.Forward != nil {
		cfg.Forward = *fc.LLM.Forward
	}
	set(&cfg.LLMBackend, fc.LLM.Backend)
	set(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	set(&cfg.LLMModel, fc.LLM.Model)
	set(&cfg.LLMAPIKey, fc.LLM.APIKey)
	if fc.LLM.Prompt != "" {
		cfg.PromptTemplate = fc.LLM.Prompt
	}

	set(&cfg.OutDir, fc.OutDir)
	if fc.EnablePDF {
		cfg.EnablePDF = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateConfig checks struct tags plus the rules that span fields, and
// reports every problem at once.
func ValidateConfig(cfg Config) error {
	var errs error
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = multierr.Append(errs, fmt.Errorf("config: %s fails %q", fe.Field(), fe.Tag()))
			}
		} else {
			errs = multierr.Append(errs, err)
		}
	}
	if cfg.FeedURL == "" && cfg.SavedSearch == "" && strings.TrimSpace(cfg.NewsAPIKey) == "" {
		errs = multierr.Append(errs, errors.New("config: a news api key is required (set API_NEWSAPI) unless a feed or saved search is used"))
	}
	if cfg.Language != "" {
		if _, err := language.Parse(cfg.Language); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("config: invalid language %q", cfg.Language))
		}
	}
	if cfg.Forward {
		if strings.TrimSpace(cfg.LLMModel) == "" {
			errs = multierr.Append(errs, errors.New("config: llm.model is required when forwarding (or set LLM_MODEL)"))
		}
		if strings.TrimSpace(cfg.LLMBaseURL) == "" {
			errs = multierr.Append(errs, errors.New("config: llm.base is required when forwarding (or set LLM_BASE_URL)"))
		}
	}
	if cfg.FetchTimeout < 0 || cfg.FetchTimeout > 10*time.Minute {
		errs = multierr.Append(errs, fmt.Errorf("config: fetch timeout %s out of range", cfg.FetchTimeout))
	}
	return errs
}
