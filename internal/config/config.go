package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Default provider endpoints; overridable for tests and sandboxes.
const (
	DefaultClioAPIBaseURL   = "https://app.clio.com/api/v4"
	DefaultClioTokenURL     = "https://app.clio.com/oauth/token"
	DefaultClioAuthorizeURL = "https://app.clio.com/oauth/authorize"
)

// GoogleScopes are requested at sign-in: identity plus read access to
// Calendar and Tasks and read/modify access to Gmail.
var GoogleScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/tasks.readonly",
}

// ClioConfig holds the case-management provider's OAuth app settings.
// Its tokens live in the browser, never in the server session, so this
// config only supports the code exchange and the API proxy.
type ClioConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
	TokenURL     string
	AuthorizeURL string
}

// Config holds everything the server reads from the environment
type Config struct {
	Port          string
	Environment   string
	FrontendURL   string
	SessionSecret []byte

	GoogleOAuth *oauth2.Config
	Clio        ClioConfig

	GeminiAPIKey string

	LogLevel string
	LogFile  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64
}

// Load reads configuration from environment variables.
// REQUIRED: SESSION_SECRET, GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET,
// CLIO_CLIENT_ID, CLIO_CLIENT_SECRET, CLIO_REDIRECT_URI.
func Load() (*Config, error) {
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable not set")
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	if googleClientID == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID environment variable not set")
	}

	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if googleClientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_SECRET environment variable not set")
	}

	clioClientID := os.Getenv("CLIO_CLIENT_ID")
	if clioClientID == "" {
		return nil, fmt.Errorf("CLIO_CLIENT_ID environment variable not set")
	}

	clioClientSecret := os.Getenv("CLIO_CLIENT_SECRET")
	if clioClientSecret == "" {
		return nil, fmt.Errorf("CLIO_CLIENT_SECRET environment variable not set")
	}

	clioRedirectURI := os.Getenv("CLIO_REDIRECT_URI")
	if clioRedirectURI == "" {
		return nil, fmt.Errorf("CLIO_REDIRECT_URI environment variable not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:" + port
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}

	samplingRate := 1.0
	if v := os.Getenv("OTEL_SAMPLING_RATE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			samplingRate = parsed
		}
	}

	return &Config{
		Port:          port,
		Environment:   envOrDefault("ENVIRONMENT", "development"),
		FrontendURL:   frontendURL,
		SessionSecret: []byte(sessionSecret),
		GoogleOAuth: &oauth2.Config{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  apiBaseURL + "/api/auth/google/callback",
			Scopes:       GoogleScopes,
			Endpoint:     google.Endpoint,
		},
		Clio: ClioConfig{
			ClientID:     clioClientID,
			ClientSecret: clioClientSecret,
			RedirectURI:  clioRedirectURI,
			APIBaseURL:   envOrDefault("CLIO_API_BASE_URL", DefaultClioAPIBaseURL),
			TokenURL:     envOrDefault("CLIO_TOKEN_URL", DefaultClioTokenURL),
			AuthorizeURL: envOrDefault("CLIO_AUTHORIZE_URL", DefaultClioAuthorizeURL),
		},
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFile:          envOrDefault("LOG_FILE", "server.log"),
		RedisHost:        os.Getenv("REDIS_HOST"),
		RedisPort:        os.Getenv("REDIS_PORT"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		OTelEnabled:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
		OTelEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelSamplingRate: samplingRate,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
