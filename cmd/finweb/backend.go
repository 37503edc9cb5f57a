package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hyperifyio/finweb/internal/app"
)

// backendValue is a pflag.Value restricted to the supported LLM backends.
type backendValue string

func (b *backendValue) String() string { return string(*b) }

func (b *backendValue) Set(s string) error {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case app.BackendOllama, app.BackendOpenAI:
		*b = backendValue(v)
		return nil
	default:
		return fmt.Errorf("must be %q or %q", app.BackendOllama, app.BackendOpenAI)
	}
}

func (b *backendValue) Type() string { return "backend" }

var _ pflag.Value = (*backendValue)(nil)
