// Package config loads process configuration from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// ServiceAll runs every service in one process.
const ServiceAll = "all"

// Config is the process configuration.
type Config struct {
	// Service selects which service this process serves: one service name
	// or ServiceAll.
	Service     string `env:"KAUPPA_SERVICE,default=all"`
	Version     string `env:"KAUPPA_VERSION,default=dev"`
	BindAddress string `env:"BIND_ADDRESS,default=0.0.0.0"`
	Port        int    `env:"PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// Transport selects the router: "mux" (gorilla) or "servemux".
	Transport     string `env:"HTTP_TRANSPORT,default=mux"`
	GatewayBridge bool   `env:"GATEWAY_BRIDGE,default=false"`

	RateLimit      float64 `env:"RATE_LIMIT,default=0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20"`
	MaxBodyBytes   int64   `env:"MAX_BODY_BYTES,default=1048576"`

	CacheCapacity  int           `env:"CACHE_CAPACITY,default=1024"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL,default=30s"`

	StoreDriver string `env:"STORE_DRIVER,default=memory"`
	StoreDSN    string `env:"STORE_DSN"`

	ClientTimeout   time.Duration `env:"CLIENT_TIMEOUT,default=5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT,default=10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=30s"`

	Endpoints Endpoints
}

// Endpoints are the base URLs of collaborating services. An empty endpoint
// means the service runs in this process or is not needed.
type Endpoints struct {
	Accounts  string `env:"ACCOUNTS_ENDPOINT"`
	Products  string `env:"PRODUCTS_ENDPOINT"`
	Carts     string `env:"CARTS_ENDPOINT"`
	Coupons   string `env:"COUPONS_ENDPOINT"`
	GiftCards string `env:"GIFTCARDS_ENDPOINT"`
	Orders    string `env:"ORDERS_ENDPOINT"`
	Shipments string `env:"SHIPMENTS_ENDPOINT"`
	Tax       string `env:"TAX_ENDPOINT"`
	Reviews   string `env:"REVIEWS_ENDPOINT"`
}

// ErrNoEndpoint is returned by Endpoint for services without a configured URL.
var ErrNoEndpoint = errors.New("no endpoint configured")

// Endpoint returns the configured base URL of service.
func (c Config) Endpoint(service string) (string, error) {
	var url string
	switch service {
	case "accounts":
		url = c.Endpoints.Accounts
	case "products":
		url = c.Endpoints.Products
	case "carts":
		url = c.Endpoints.Carts
	case "coupons":
		url = c.Endpoints.Coupons
	case "giftcards":
		url = c.Endpoints.GiftCards
	case "orders":
		url = c.Endpoints.Orders
	case "shipments":
		url = c.Endpoints.Shipments
	case "tax":
		url = c.Endpoints.Tax
	case "reviews":
		url = c.Endpoints.Reviews
	default:
		return "", fmt.Errorf("unknown service %q", service)
	}
	if url == "" {
		return "", fmt.Errorf("%s: %w (set %s_ENDPOINT)", service, ErrNoEndpoint, strings.ToUpper(service))
	}
	return url, nil
}

// Address returns host:port for the HTTP listener.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// RunsAll reports whether every service is served by this process.
func (c Config) RunsAll() bool { return c.Service == ServiceAll }

// Default returns the configuration used when the environment sets nothing.
func Default() Config {
	return Config{
		Service:         ServiceAll,
		Version:         "dev",
		BindAddress:     "0.0.0.0",
		Port:            8080,
		LogLevel:        "info",
		Transport:       "mux",
		RateLimitBurst:  20,
		MaxBodyBytes:    1 << 20,
		CacheCapacity:   1024,
		LookupCacheTTL:  30 * time.Second,
		StoreDriver:     "memory",
		ClientTimeout:   5 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
	}
}

// Load reads the given .env files, when they exist, then decodes and
// validates the environment. Variables already set win over file values.
func Load(files ...string) (Config, error) {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var services = []any{
	ServiceAll, "accounts", "products", "carts", "coupons",
	"giftcards", "orders", "shipments", "tax", "reviews",
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Service, validation.Required, validation.In(services...)),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Transport, validation.In("mux", "servemux")),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.RateLimitBurst, validation.Min(1)),
		validation.Field(&c.MaxBodyBytes, validation.Min(int64(1))),
		validation.Field(&c.CacheCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.LookupCacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.StoreDriver, validation.In("memory", "sqlite", "sqlite3", "postgres")),
		validation.Field(&c.StoreDSN, validation.When(c.StoreDriver != "memory", validation.Required)),
		validation.Field(&c.ClientTimeout, validation.Required),
		validation.Field(&c.ShutdownTimeout, validation.Required),
	)
}
