package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración de ambos binarios.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"3000"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Cliente: origen del backend y contexto de la "página" actual,
	// usados por la resolución de origen (explícito > file > puerto dev).
	APIBase    string `env:"TM_API_BASE"`
	PageScheme string `env:"TM_PAGE_SCHEME" envDefault:"http"`
	PageHost   string `env:"TM_PAGE_HOST" envDefault:"localhost"`
	PagePort   string `env:"TM_PAGE_PORT"`
	StorePath  string `env:"TM_STORE_PATH" envDefault:".tm_local.json"`

	JWTSecret        string `env:"JWT_SECRET"`
	SessionTTLHours  int    `env:"SESSION_TTL_HOURS" envDefault:"720"`
	PlanDurationDays int    `env:"PLAN_DURATION_DAYS" envDefault:"30"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"TrueMatch"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CheckoutBaseURL string `env:"CHECKOUT_BASE_URL" envDefault:"https://commerce.coinbase.com/charges"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
