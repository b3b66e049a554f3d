package model

import "time"

// ================ Config ================
type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"5000"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"https://talksphere-silk.vercel.app,http://localhost:5173"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxUploadBytes  int64         `envconfig:"SERVER_MAX_UPLOAD_BYTES" default:"10485760"`
}

type GatewayConfig struct {
	Model       string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"GEMINI_MAX_TOKENS" default:"1024"`
	Temperature float32       `envconfig:"GEMINI_TEMPERATURE" default:"0.4"`
	Timeout     time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
}

type AuthConfig struct {
	Secret            string        `envconfig:"JWT_SECRET" required:"true"`
	TTL               time.Duration `envconfig:"JWT_TTL" default:"168h"`
	CookieName        string        `envconfig:"AUTH_COOKIE_NAME" default:"token"`
	BcryptCost        int           `envconfig:"AUTH_BCRYPT_COST" default:"10"`
	PasswordMinLength int           `envconfig:"AUTH_PASSWORD_MIN_LENGTH" default:"6"`
}

type ConversationConfig struct {
	TTL          time.Duration `envconfig:"CONVERSATION_TTL" default:"30m"`
	MaxTurns     int           `envconfig:"CONVERSATION_MAX_TURNS" default:"10"`
	HistoryLimit int           `envconfig:"HISTORY_LIMIT" default:"100"`
}

type ProfileConfig struct {
	MaxImageBytes int `envconfig:"PROFILE_MAX_IMAGE_BYTES" default:"2097152"`
}

type ToolsConfig struct {
	// BaseURL defaults to the server's own loopback address when empty.
	BaseURL  string        `envconfig:"TOOLS_BASE_URL"`
	Timezone string        `envconfig:"TOOLS_TIMEZONE" default:"Local"`
	Timeout  time.Duration `envconfig:"TOOLS_TIMEOUT" default:"5s"`
}
