// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/abhyasam/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。Embedding 和 Chat 各自持有一份，
// 允许混用不同供应商（如 HuggingFace 向量化 + OpenAI 兼容端点生成）。
type ProviderOptions struct {
	// Provider 供应商名称（openai, huggingface, ollama）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// Model 使用的模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（OpenAI 可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// flagPrefix 区分 embedding 与 chat 的命令行前缀。
	flagPrefix string
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "huggingface",
		BaseURL:    "https://api-inference.huggingface.co",
		Model:      "sentence-transformers/all-MiniLM-L6-v2",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		flagPrefix: "embedding",
	}
}

// NewChatOptions 创建默认 Chat 供应商配置。
func NewChatOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "openai",
		BaseURL:    "https://api.groq.com/openai/v1",
		Model:      "llama-3.1-8b-instant",
		Timeout:    120 * time.Second,
		MaxRetries: 3,
		flagPrefix: "chat",
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":     o.BaseURL,
		"api_key":      o.APIKey,
		"embed_model":  o.Model,
		"chat_model":   o.Model,
		"timeout":      o.Timeout,
		"max_retries":  o.MaxRetries,
		"organization": o.Organization,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + o.flagPrefix
	fs.StringVar(&o.Provider, p+".provider", o.Provider, "Provider name (openai, huggingface, ollama).")
	fs.StringVar(&o.BaseURL, p+".base-url", o.BaseURL, "Provider API base URL.")
	fs.StringVar(&o.APIKey, p+".api-key", o.APIKey, "Provider API key.")
	fs.StringVar(&o.Model, p+".model", o.Model, "Model name.")
	fs.DurationVar(&o.Timeout, p+".timeout", o.Timeout, "Request timeout.")
	fs.IntVar(&o.MaxRetries, p+".max-retries", o.MaxRetries, "Maximum number of retries.")
	fs.StringVar(&o.Organization, p+".organization", o.Organization, "Organization ID (optional).")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	// OpenAI 兼容端点需要 API key
	if o.Provider == "openai" && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("api-key is required for openai provider"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.flagPrefix == "" {
		o.flagPrefix = "llm"
	}
	return nil
}
