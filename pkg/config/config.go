package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/gatehouse/pkg/cookie"
	"github.com/dmitrymomot/gatehouse/pkg/db"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/redis"
)

var (
	ErrLoad    = errors.New("config: failed to load")
	ErrInvalid = errors.New("config: invalid")
)

// Config is the full application configuration.
type Config struct {
	Sentry logger.SentryConfig
	DB     db.Config
	Redis  redis.Config
	App    App
	Auth   Auth
}

// App configures the HTTP server and ambient concerns.
type App struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	RoutesFile      string        `env:"ROUTES_FILE" envDefault:"config/routes.yaml"`
	ModulesDir      string        `env:"MODULES_DIR" envDefault:"modules"`
	MetricsPath     string        `env:"METRICS_PATH" envDefault:"/metrics"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"false"`
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxy bool `env:"HTTP_TRUST_PROXY" envDefault:"false"`
}

// Auth configures sessions, the gate and the dispatcher's category gates.
type Auth struct {
	SessionKey    string `env:"AUTH_SESSION_KEY" envDefault:"user"`
	SessionCookie string `env:"AUTH_SESSION_COOKIE" envDefault:"__sid"`
	CookieSecret  string `env:"AUTH_COOKIE_SECRET"`
	IdentityKey   string `env:"AUTH_IDENTITY_KEY" envDefault:"username"`
	// UsersSQLite is a SQLite file holding the users table. Used when no
	// database URL is configured.
	UsersSQLite   string        `env:"AUTH_USERS_SQLITE"`
	LoginURL      string        `env:"AUTH_LOGIN_URL" envDefault:"/login"`
	AdminURL      string        `env:"AUTH_ADMIN_URL" envDefault:"/admin"`
	APIUser       string        `env:"AUTH_API_USER"`
	APIPassword   string        `env:"AUTH_API_PASSWORD"`
	SweepSchedule string        `env:"AUTH_SWEEP_SCHEDULE" envDefault:"*/15 * * * *"`
	AllowIPs      []string      `env:"AUTH_ALLOW_IPS" envSeparator:","`
	DenyIPs       []string      `env:"AUTH_DENY_IPS" envSeparator:","`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`
	TokenTTL      time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"15m"`
	MaxAttempts   int64         `env:"AUTH_MAX_ATTEMPTS" envDefault:"5"`
	RedirectCode  int           `env:"AUTH_REDIRECT_CODE" envDefault:"302"`
	CookieSecure  bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	ResetOnLogin  bool          `env:"AUTH_RESET_ON_LOGIN" envDefault:"true"`
	StrongPolicy  bool          `env:"AUTH_STRONG_PASSWORD" envDefault:"false"`
}

// Load reads dotenv files, then parses and validates the environment.
// Missing dotenv files are ignored. With no files, ".env" is tried.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(ErrLoad, fmt.Errorf("%s: %w", f, err))
		}
	}
	return parse(env.Options{})
}

// FromMap parses vars instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, errors.Join(ErrLoad, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.SessionKey == "" {
		errs = append(errs, errors.New("AUTH_SESSION_KEY is empty"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("AUTH_SESSION_TTL must be positive"))
	}
	if c.Auth.MaxAttempts < 0 {
		errs = append(errs, errors.New("AUTH_MAX_ATTEMPTS must not be negative"))
	}
	if c.Auth.RedirectCode < http.StatusMultipleChoices || c.Auth.RedirectCode > http.StatusPermanentRedirect {
		errs = append(errs, fmt.Errorf("AUTH_REDIRECT_CODE %d is not a redirect status", c.Auth.RedirectCode))
	}
	if c.Auth.CookieSecret != "" && len(c.Auth.CookieSecret) < cookie.MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_COOKIE_SECRET must be at least %d characters", cookie.MinSecretLength))
	}
	if (c.Auth.APIUser == "") != (c.Auth.APIPassword == "") {
		errs = append(errs, errors.New("AUTH_API_USER and AUTH_API_PASSWORD must be set together"))
	}
	if _, _, err := c.Auth.IPRules(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}

// APIEnabled reports whether Basic credentials for API controllers are configured.
func (a Auth) APIEnabled() bool {
	return a.APIUser != "" && a.APIPassword != ""
}

// IPRules parses AllowIPs and DenyIPs. Bare addresses become single-host prefixes.
func (a Auth) IPRules() (allow, deny []netip.Prefix, err error) {
	if allow, err = parsePrefixes(a.AllowIPs); err != nil {
		return nil, nil, err
	}
	if deny, err = parsePrefixes(a.DenyIPs); err != nil {
		return nil, nil, err
	}
	return allow, deny, nil
}

func parsePrefixes(list []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("ip rule %q: %w", s, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("ip rule %q: %w", s, err)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}
