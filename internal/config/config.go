package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	BaseURL     string

	AuthCookieSecure  bool
	AdminEmail        string
	AdminPasswordHash string
	SessionTTLMinutes int

	DBPath string
	WebDir string

	StripeSecretKey     string
	StripeWebhookSecret string

	Zoho ZohoConfig

	Email EmailConfig

	AlertRecipient string

	Seller SellerConfig
}

// SellerConfig identifies the merchant on generated receipts.
type SellerConfig struct {
	Name    string
	Address string
	VATID   string
}

type ZohoConfig struct {
	Enabled        bool
	BaseURL        string
	AccountsURL    string
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	OrganizationID string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Module provides Config and the funnel config holder to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewFunnelConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "punchline"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getenv("BASE_URL", "http://localhost:8080"), "/"),

		AuthCookieSecure:  authCookieSecure,
		AdminEmail:        strings.TrimSpace(getenv("ADMIN_EMAIL", "")),
		AdminPasswordHash: strings.TrimSpace(getenv("ADMIN_PASSWORD_HASH", "")),
		SessionTTLMinutes: getenvInt("SESSION_TTL_MINUTES", 720),

		DBPath: getenv("DATABASE_PATH", "punchline.db"),
		WebDir: getenv("WEB_DIR", "web"),

		StripeSecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
		StripeWebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),

		Zoho: ZohoConfig{
			Enabled:        getenvBool("ZOHO_ENABLED", false),
			BaseURL:        getenv("ZOHO_BASE_URL", "https://www.zohoapis.eu/books/v3"),
			AccountsURL:    getenv("ZOHO_ACCOUNTS_URL", "https://accounts.zoho.eu"),
			ClientID:       strings.TrimSpace(getenv("ZOHO_CLIENT_ID", "")),
			ClientSecret:   strings.TrimSpace(getenv("ZOHO_CLIENT_SECRET", "")),
			RefreshToken:   strings.TrimSpace(getenv("ZOHO_REFRESH_TOKEN", "")),
			OrganizationID: strings.TrimSpace(getenv("ZOHO_ORGANIZATION_ID", "")),
		},

		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", ""),
		},

		AlertRecipient: strings.TrimSpace(getenv("ALERT_RECIPIENT", "")),

		Seller: SellerConfig{
			Name:    getenv("SELLER_NAME", ""),
			Address: getenv("SELLER_ADDRESS", ""),
			VATID:   getenv("SELLER_VAT_ID", ""),
		},
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
