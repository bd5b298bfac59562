package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	FanoutCapacity  int           `env:"FANOUT_CAPACITY,default=16" validate:"min=1"`
	PostRateLimit   float64       `env:"POST_RATE_LIMIT,default=5" validate:"gt=0"`
	PostRateBurst   int           `env:"POST_RATE_BURST,default=10" validate:"min=1"`
	ReportInterval  time.Duration `env:"REPORT_INTERVAL,default=30s" validate:"min=1s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"min=1ms"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"min=1ms"`
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
