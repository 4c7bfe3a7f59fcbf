// Package config reads client settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	WSURL    string
	TokenURL string
	// Origin is sent with the WebSocket handshake.
	Origin string

	CanvasWidth  int
	CanvasHeight int
	ViewWidth    int
	ViewHeight   int

	RedisAddress  string
	RedisPassword string
	RedisKey      string

	InspectAddr string

	Environment string
	Debug       bool
}

func Defaults() Config {
	return Config{
		WSURL:        "wss://bot.sheppsu.me/ws/",
		TokenURL:     "https://bot.sheppsu.me/token",
		Origin:       "https://bot.sheppsu.me",
		CanvasWidth:  750,
		CanvasHeight: 750,
		ViewWidth:    1280,
		ViewHeight:   720,
		RedisKey:     "pixels",
		Environment:  "production",
	}
}

// LoadEnv loads the given .env files (or ./.env when none are given) into
// the process environment. A missing file is not an error.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// FromEnv applies environment variables over Defaults.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Defaults()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", key, v, err))
			return
		}
		*dst = n
	}

	str("PLACE_WS_URL", &c.WSURL)
	str("PLACE_TOKEN_URL", &c.TokenURL)
	str("PLACE_ORIGIN", &c.Origin)
	num("PLACE_CANVAS_WIDTH", &c.CanvasWidth)
	num("PLACE_CANVAS_HEIGHT", &c.CanvasHeight)
	num("PLACE_VIEW_WIDTH", &c.ViewWidth)
	num("PLACE_VIEW_HEIGHT", &c.ViewHeight)
	str("REDIS_ADDRESS", &c.RedisAddress)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("PLACE_REDIS_KEY", &c.RedisKey)
	str("PLACE_INSPECT_ADDR", &c.InspectAddr)
	str("ENVIRONMENT", &c.Environment)

	if v, ok := lookup("PLACE_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid PLACE_DEBUG %q: %w", v, err))
		} else {
			c.Debug = b
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Development() bool { return c.Environment == "development" }

func (c Config) Validate() error {
	if c.WSURL == "" {
		return errors.New("websocket url is required")
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.CanvasWidth, c.CanvasHeight)
	}
	if c.ViewWidth <= 0 || c.ViewHeight <= 0 {
		return fmt.Errorf("invalid view size %dx%d", c.ViewWidth, c.ViewHeight)
	}
	if c.RedisAddress != "" && c.RedisKey == "" {
		return errors.New("redis key is required when a redis address is set")
	}
	return nil
}
