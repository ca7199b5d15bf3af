package config

import "os"

// Config holds process-level settings loaded from the environment.
// The discretion policy itself lives in the entity store (system_config);
// this struct only covers infrastructure wiring.
type Config struct {
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	HTTPPort      string
	LogLevel      string
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	Sandbox       bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "clearquest"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "password123"),
		Sandbox:       getEnv("SANDBOX", "") == "true",
	}
}

// AIExtractorConfig configures the remote fact-extraction model.
type AIExtractorConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	TimeoutMS int
}

// LoadAIExtractorConfig returns extraction settings. An empty API key means
// the deterministic keyword extractor runs alone.
func LoadAIExtractorConfig() *AIExtractorConfig {
	return &AIExtractorConfig{
		APIKey:    os.Getenv("GEMINI_API_KEY"),
		BaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		Model:     getEnv("GEMINI_MODEL_EXTRACT", "gemini-2.0-flash"),
		TimeoutMS: 10000,
	}
}

// Enabled reports whether the remote extractor is configured.
func (c *AIExtractorConfig) Enabled() bool {
	return c.APIKey != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
