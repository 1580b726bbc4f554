// Package notion provides configuration options for the workspace-notes
// source client.
package notion

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/abhyasam/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains source API client configuration.
type Options struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// Token is the integration token used as a bearer credential.
	Token string `json:"-" mapstructure:"token"`

	// Version is the API version header value.
	Version string `json:"version" mapstructure:"version"`

	// Timeout bounds each API request.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries is the retry budget for transient failures.
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		BaseURL:    "https://api.notion.com",
		Version:    "2022-06-28",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.BaseURL, p+"notion.base-url", o.BaseURL, "Workspace-notes API base URL.")
	fs.StringVar(&o.Token, p+"notion.token", o.Token, "Integration token (prefer NOTION_TOKEN env var).")
	fs.StringVar(&o.Version, p+"notion.version", o.Version, "API version header value.")
	fs.DurationVar(&o.Timeout, p+"notion.timeout", o.Timeout, "Per-request timeout.")
	fs.IntVar(&o.MaxRetries, p+"notion.max-retries", o.MaxRetries, "Retry budget for transient failures.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	if o.Token == "" {
		o.Token = os.Getenv("NOTION_TOKEN")
	}

	var errs []error
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("notion base-url is required"))
	}
	if o.Token == "" {
		errs = append(errs, fmt.Errorf("notion token is required (flag or NOTION_TOKEN)"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("notion timeout must be positive"))
	}
	return errs
}
