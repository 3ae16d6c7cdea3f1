package sources

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// Provider fetches raw METAR text for one station. Implementations are
// registered under stable names and selected through configuration.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, station string) (string, error)
}

// Failure taxonomy for a single provider attempt. The chain falls through to
// the next provider on any of these.
var (
	ErrTimeout     = errors.New("provider timeout")
	ErrUnavailable = errors.New("provider unavailable")
	ErrNotFound    = errors.New("station not found")
)

// Options tunes the HTTP behavior shared by all providers.
type Options struct {
	// Timeout bounds each HTTP attempt, retries included.
	Timeout time.Duration
	// RetryCount is the number of retries after the first attempt.
	RetryCount int
	// BaseURL replaces every provider's production endpoint when set.
	// Used to point the chain at a stub server in tests.
	BaseURL string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	return o
}

// Factory builds a provider from shared options.
type Factory func(opts Options) (Provider, error)

var registry = map[string]Factory{}

// Register adds a provider factory under a stable name. Called from package
// init functions; not safe for concurrent use.
func Register(name string, f Factory) {
	registry[name] = f
}

// Names lists the registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build resolves an ordered list of configured names against the registry.
func Build(names []string, opts Options) ([]Provider, error) {
	opts = opts.withDefaults()
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		factory, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (available: %v)", name, Names())
		}
		p, err := factory(opts)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func newHTTPClient(baseURL string, opts Options) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)
}

// newBreaker builds the per-provider circuit breaker. A tripped breaker
// fails fast as unavailable instead of burning the fetch timeout budget.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

func throughBreaker(cb *gobreaker.CircuitBreaker, fn func() (string, error)) (string, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return "", err
	}
	return out.(string), nil
}

// classify maps transport and HTTP status failures onto the taxonomy.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%w: http 404", ErrNotFound)
	case resp.StatusCode() >= http.StatusBadRequest:
		return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode())
	}
	return nil
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
