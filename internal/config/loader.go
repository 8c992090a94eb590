package config

import (
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment override,
// CHAPTER_AUTH_SIGNING_KEY sets auth.signing_key
const EnvPrefix = "CHAPTER_"

var ErrMissingSigningKey = errors.New(
	"CHAPTER_AUTH_SIGNING_KEY is required outside development",
	errors.CategoryValidation,
).WithTextCode("MISSING_SIGNING_KEY")

type loader struct {
	koanf    *koanf.Koanf
	environ  func() []string
	dotenv   []string
	defaults *Config
}

// Option configures Load
type Option func(*loader)

// WithEnviron replaces os.Environ as the source of overrides
func WithEnviron(fn func() []string) Option {
	return func(l *loader) {
		if fn != nil {
			l.environ = fn
		}
	}
}

// WithDotenv reads the given .env files before the process environment.
// Missing files are skipped.
func WithDotenv(paths ...string) Option {
	return func(l *loader) {
		l.dotenv = append(l.dotenv, paths...)
	}
}

// WithDefaults replaces the built in defaults
func WithDefaults(cfg *Config) Option {
	return func(l *loader) {
		if cfg != nil {
			l.defaults = cfg
		}
	}
}

// Load builds the configuration from defaults, .env files and CHAPTER_*
// environment variables, in that order of precedence.
func Load(opts ...Option) (*Config, error) {
	l := &loader{
		koanf:    koanf.New("."),
		environ:  os.Environ,
		defaults: Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.koanf.Load(structs.Provider(l.defaults, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load defaults")
	}

	environ, err := l.environment()
	if err != nil {
		return nil, err
	}

	if err := l.koanf.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnvKey,
		EnvironFunc:   func() []string { return environ },
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load environment")
	}

	cfg := &Config{}
	if err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				keyMapDecodeHook,
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to decode configuration")
	}

	cfg.normalize()

	if err := cfg.ensureSigningKey(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid configuration").
			WithTextCode("INVALID_CONFIG")
	}

	return cfg, nil
}

// environment merges .env entries ahead of the process environment so the
// latter wins on duplicate keys
func (l *loader) environment() ([]string, error) {
	out := []string{}
	for _, path := range l.dotenv {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read "+path)
		}
		for k, v := range values {
			out = append(out, k+"="+v)
		}
	}
	return append(out, l.environ()...), nil
}

// transformEnvKey maps CHAPTER_AUTH_TOKEN_TTL to auth.token_ttl. The first
// segment after the prefix names the section.
func transformEnvKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' })

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], value
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_"), value
	}
}

// keyMapDecodeHook reads "kid:secret,kid2:secret2" into a map
func keyMapDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(map[string]string{}) {
		return data, nil
	}

	out := map[string]string{}
	for _, entry := range strings.Split(data.(string), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kid, secret, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(kid) == "" || secret == "" {
			return nil, errors.New("previous key entries must look like kid:secret", errors.CategoryValidation)
		}
		out[strings.TrimSpace(kid)] = secret
	}
	return out, nil
}

func (c *Config) normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))

	audience := c.Auth.Audience[:0]
	for _, aud := range c.Auth.Audience {
		if aud = strings.TrimSpace(aud); aud != "" {
			audience = append(audience, aud)
		}
	}
	c.Auth.Audience = audience

	if c.Auth.PreviousKeys == nil {
		c.Auth.PreviousKeys = map[string]string{}
	}
}
