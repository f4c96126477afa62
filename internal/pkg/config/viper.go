package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// ErrConfigType is returned by NewViperFromBytes when no format is given.
var ErrConfigType = errors.New("config type is required")

// defaults are applied before the file is read, so the service starts with
// an in-memory repository and no broker when the file omits them.
var defaults = map[string]any{
	"app.name":                      "otpgate",
	"app.server.http.address":       ":8000",
	"app.server.http.read_timeout":  "10s",
	"app.server.http.write_timeout": "10s",
	"app.server.http.idle_timeout":  "60s",
	"app.server.max_goroutine":      100,
	"otp.issuer":                    "PSAR",
	"otp.qr_size":                   256,
	"hash.bcrypt.cost":              10,
	"repository.driver":             "memory",
	"repository.call_timeout":       "3s",
	"repository.connect.retries":    5,
	"repository.connect.backoff":    "500ms",
	"repository.mongo.database":     "otpgate",
	"repository.mongo.collection":   "users",
	"repository.redis.prefix":       "otpgate:",
	"messaging.driver":              "none",
	"instrument.mask_fields":        "password,token,base32,otp_base32,otpauth_url,otp_auth_url,qr_code,secret,authorization",
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// REPOSITORY_DRIVER overrides repository.driver and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// NewViper loads a .env file next to the working directory when present,
// then reads the config file at pathFile and watches it for changes.
//
// Environment variables always win over file values.
func NewViper(pathFile string) (*Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(pathFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("config reloaded", "path", pathFile, "op", e.Op.String())
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory.
// configType should be a format supported by Viper (e.g. "yaml", "json").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, ErrConfigType
	}

	v := newViper()
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (vc *Viper) GetBool(key string) bool     { return vc.v.GetBool(key) }
func (vc *Viper) GetString(key string) string { return vc.v.GetString(key) }
func (vc *Viper) GetInt(key string) int       { return vc.v.GetInt(key) }

func (vc *Viper) GetDuration(key string) time.Duration {
	raw := strings.TrimSpace(vc.v.GetString(key))
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return vc.v.GetDuration(key)
}

func (vc *Viper) GetArray(key string) []string {
	var items []string
	if raw, ok := vc.v.Get(key).(string); ok {
		items = strings.Split(raw, ",")
	} else {
		items = vc.v.GetStringSlice(key)
	}

	return lo.Compact(lo.Map(items, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// Close implements io.Closer. Viper holds no resources that need releasing.
func (vc *Viper) Close() error {
	return nil
}

// Path returns the config path from CONFIG_PATH, falling back to fallback.
func Path(fallback string) string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return filepath.Clean(p)
	}
	return fallback
}
