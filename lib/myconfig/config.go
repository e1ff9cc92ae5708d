package myconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	StripeSecretKey     string
	StripeWebhookSecret string
	GatewayTimeout      time.Duration
	WebhookTolerance    time.Duration

	SiteURL                  string
	OrderPrefix              string
	AllowedShippingCountries []string
	BootstrapToken           string

	MailFrom        string
	MailAppPassword string
	SMTPHost        string
	SMTPPort        int
	MailTimeout     time.Duration

	RedisAddr string
}

// Load reads an optional .env file followed by the process environment.
// All missing required variables are reported in a single error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			err = godotenv.Load(f)
			if err != nil {
				return Config{}, fmt.Errorf("error loading %s: %s", f, err)
			}
		}
	}
	return FromLookup(os.LookupEnv)
}

func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		Port:                     r.optional("PORT", "8080"),
		StripeSecretKey:          r.required("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:      r.required("STRIPE_WEBHOOK_SECRET"),
		GatewayTimeout:           r.duration("GATEWAY_TIMEOUT", 10*time.Second),
		WebhookTolerance:         r.duration("WEBHOOK_TOLERANCE", 5*time.Minute),
		SiteURL:                  strings.TrimSuffix(r.required("SITE_URL"), "/"),
		OrderPrefix:              r.optional("ORDER_PREFIX", "SAR"),
		AllowedShippingCountries: r.list("ALLOWED_SHIPPING_COUNTRIES", []string{"FR", "BE", "CH", "LU"}),
		BootstrapToken:           r.required("BOOTSTRAP_TOKEN"),
		MailFrom:                 r.required("MAIL_FROM"),
		MailAppPassword:          r.required("MAIL_APP_PASSWORD"),
		SMTPHost:                 r.optional("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:                 r.integer("SMTP_PORT", 587),
		MailTimeout:              r.duration("MAIL_TIMEOUT", 10*time.Second),
		RedisAddr:                r.optional("REDIS_ADDR", ""),
	}

	if len(r.missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(r.invalid, ", "))
	}
	return cfg, nil
}

type reader struct {
	lookup  func(string) (string, bool)
	missing []string
	invalid []string
}

func (r *reader) value(name string) (string, bool) {
	v, found := r.lookup(name)
	v = strings.TrimSpace(v)
	return v, found && v != ""
}

func (r *reader) required(name string) string {
	v, found := r.value(name)
	if !found {
		r.missing = append(r.missing, name)
	}
	return v
}

func (r *reader) optional(name string, defaultValue string) string {
	v, found := r.value(name)
	if !found {
		return defaultValue
	}
	return v
}

func (r *reader) duration(name string, defaultValue time.Duration) time.Duration {
	v, found := r.value(name)
	if !found {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.invalid = append(r.invalid, name)
		return defaultValue
	}
	return d
}

func (r *reader) integer(name string, defaultValue int) int {
	v, found := r.value(name)
	if !found {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.invalid = append(r.invalid, name)
		return defaultValue
	}
	return i
}

func (r *reader) list(name string, defaultValue []string) []string {
	v, found := r.value(name)
	if !found {
		return defaultValue
	}
	result := []string{}
	for _, part := range strings.Split(v, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
