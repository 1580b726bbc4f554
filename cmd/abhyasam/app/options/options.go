// Package options contains flags and options for initializing the study server.
package options

import (
	stderrors "errors"
	"fmt"

	"github.com/spf13/pflag"

	abhyasam "github.com/kart-io/abhyasam/internal/abhyasam"
	httpopts "github.com/kart-io/abhyasam/pkg/options/http"
	llmopts "github.com/kart-io/abhyasam/pkg/options/llm"
	logopts "github.com/kart-io/abhyasam/pkg/options/logger"
	milvusopts "github.com/kart-io/abhyasam/pkg/options/milvus"
	notionopts "github.com/kart-io/abhyasam/pkg/options/notion"
	redisopts "github.com/kart-io/abhyasam/pkg/options/redis"
	revisionopts "github.com/kart-io/abhyasam/pkg/options/revision"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// RedisOptions contains Redis session store configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// NotionOptions contains workspace-notes source configuration.
	NotionOptions *notionopts.Options `json:"notion" mapstructure:"notion"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RevisionOptions contains retrieval and quiz pipeline configuration.
	RevisionOptions *revisionopts.Options `json:"revision" mapstructure:"revision"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8086"

	return &ServerOptions{
		HTTPOptions:      httpOpts,
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		NotionOptions:    notionopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		RevisionOptions:  revisionopts.NewOptions(),
	}
}

// AddFlags registers all option flags on the flagset.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.LogOptions.AddFlags(fs)
	o.MilvusOptions.AddFlags(fs)
	o.RedisOptions.AddFlags(fs)
	o.NotionOptions.AddFlags(fs)
	o.EmbeddingOptions.AddFlags(fs)
	o.ChatOptions.AddFlags(fs)
	o.RevisionOptions.AddFlags(fs)
}

// Complete fills in defaulted fields before validation.
func (o *ServerOptions) Complete() error {
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	var errs []error

	errs = append(errs, o.HTTPOptions.Validate()...)
	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.NotionOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.RevisionOptions.Validate()...)

	return stderrors.Join(errs...)
}

// Config builds an application Config based on ServerOptions.
func (o *ServerOptions) Config() (*abhyasam.Config, error) {
	return &abhyasam.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		RedisOptions:     o.RedisOptions,
		NotionOptions:    o.NotionOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		RevisionOptions:  o.RevisionOptions,
	}, nil
}
