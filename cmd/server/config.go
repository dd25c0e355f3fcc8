package main

import (
	"fmt"
	"net/url"
	"reflect"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/cleanyhq/cleany/internal/email"
	"github.com/cleanyhq/cleany/internal/krypto"
)

// config is the configuration for the server command. All values come
// from the environment, secrets are parsed into types that refuse to be
// printed or marshalled.
type config struct {
	HTTPAddr            string        `env:"HTTP_ADDR" envDefault:":8888"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DBFile string `env:"DB_FILE" envDefault:"cleany.db"`

	// BaseURL is the public URL token links in emails point at.
	BaseURL url.URL `env:"BASE_URL" envDefault:"http://localhost:8888"`

	// HashProfile selects the argon2id cost profile. "interactive" is
	// for production, "min" only for tests and local development.
	HashProfile string `env:"HASH_PROFILE" envDefault:"interactive"`

	// EncryptionKeys encrypt email addresses at rest. The first key is
	// used for new writes, the others can still decrypt.
	EncryptionKeys []krypto.Key `env:"ENCRYPTION_KEYS,required" envSeparator:","`
	BlindIndexKey  krypto.Key   `env:"BLIND_INDEX_KEY,required"`

	EmailFrom   email.Address `env:"EMAIL_FROM,required"`
	EmailDriver string        `env:"EMAIL_DRIVER" envDefault:"log"`

	WorkerTimeout    time.Duration `env:"WORKER_TIMEOUT" envDefault:"10s"`
	ResetTokenExpiry time.Duration `env:"RESET_TOKEN_EXPIRY" envDefault:"2h"`

	PostmarkAPIURL        url.URL       `env:"POSTMARK_API_URL" envDefault:"https://api.postmarkapp.com/email"`
	PostmarkServerToken   krypto.Secret `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkMessageStream string        `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
}

// configFromEnv returns a config with values from the environment. It
// falls back to default values for any missing environment variables.
func configFromEnv() (config, error) {
	var c config

	err := env.ParseWithFuncs(&c, map[reflect.Type]env.ParserFunc{
		reflect.TypeOf(krypto.Key{}): func(v string) (any, error) {
			return krypto.ParseKey(v)
		},
		reflect.TypeOf(krypto.Secret{}): func(v string) (any, error) {
			return krypto.NewSecret(v), nil
		},
		reflect.TypeOf(email.Address("")): func(v string) (any, error) {
			return email.ParseAddress(v)
		},
	})
	if err != nil {
		return c, err
	}

	if _, err := c.hashParams(); err != nil {
		return c, err
	}

	if c.EmailDriver != "log" && c.EmailDriver != "postmark" {
		return c, fmt.Errorf("unknown email driver %q", c.EmailDriver)
	}

	return c, nil
}

func (c config) hashParams() (krypto.Argon2Params, error) {
	switch c.HashProfile {
	case "interactive":
		return krypto.InteractiveArgon2Params(), nil
	case "min":
		return krypto.MinArgon2Params(), nil
	}

	return krypto.Argon2Params{}, fmt.Errorf("unknown hash profile %q", c.HashProfile)
}
