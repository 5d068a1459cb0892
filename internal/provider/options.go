package provider

import (
	"net/http"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 60 * time.Second

type options struct {
	model   string
	client  *http.Client
	baseURL string
}

// Option is a functional option shared by the provider constructors.
type Option func(*options)

// WithModel sets the model to use.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.client = client
		}
	}
}

// WithTimeout replaces the HTTP client with one using the given timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = url
		}
	}
}

func applyOptions(model, baseURL string, opts []Option) options {
	o := options{
		model:   model,
		client:  &http.Client{Timeout: DefaultTimeout},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
