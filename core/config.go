package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	GeocoderConfig struct {
		URL      string
		Language string
		Timeout  time.Duration
	}

	// GeolocationConfig selects the platform location source: "relay" (fixes pushed by the UI shell),
	// "static" (fixed coordinates) or "unsupported".
	GeolocationConfig struct {
		Driver    string
		Latitude  float64
		Longitude float64
		Accuracy  float64
	}

	// DispatchConfig selects where tracking payloads go: "http", "console", "clickhouse" or "dynamodb".
	DispatchConfig struct {
		Driver  string
		URL     string
		Token   string
		Timeout time.Duration
	}

	ClickHouseConfig struct {
		Host     string
		Port     string
		Database string
		Username string
		Password string
		Table    string
	}

	DynamoDBConfig struct {
		Region string
		Table  string
	}

	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		WorkDir      string
		RollbarToken string

		Server      ServerConfig
		Geocoder    GeocoderConfig
		Geolocation GeolocationConfig
		Dispatch    DispatchConfig
		ClickHouse  ClickHouseConfig
		DynamoDB    DynamoDBConfig
	}
)

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, s.Port)
}

func (c ClickHouseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Masomo")
	conf.SetDefault("build", "develop")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("server.host", "127.0.0.1")
	conf.SetDefault("server.port", "8000")
	conf.SetDefault("server.debugHost", "127.0.0.1:4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("geocoder.url", "https://api.bigdatacloud.net/data/reverse-geocode-client")
	conf.SetDefault("geocoder.language", "en")
	conf.SetDefault("geocoder.timeout", 5*time.Second)
	conf.SetDefault("geolocation.driver", "relay")
	conf.SetDefault("geolocation.latitude", 0.0)
	conf.SetDefault("geolocation.longitude", 0.0)
	conf.SetDefault("geolocation.accuracy", 0.0)
	conf.SetDefault("dispatch.driver", "console")
	conf.SetDefault("dispatch.url", "http://localhost:8080/api/track")
	conf.SetDefault("dispatch.token", "")
	conf.SetDefault("dispatch.timeout", 10*time.Second)
	conf.SetDefault("clickhouse.host", "localhost")
	conf.SetDefault("clickhouse.port", "9000")
	conf.SetDefault("clickhouse.database", "masomo")
	conf.SetDefault("clickhouse.username", "default")
	conf.SetDefault("clickhouse.password", "")
	conf.SetDefault("clickhouse.table", "tracking_events")
	conf.SetDefault("dynamodb.region", "us-east-1")
	conf.SetDefault("dynamodb.table", "masomo-tracking-events")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		AppName:      conf.GetString("appName"),
		Env:          env,
		Build:        conf.GetString("build"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		WorkDir:      workDir,
		RollbarToken: conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            conf.GetString("server.host"),
			Port:            conf.GetString("server.port"),
			DebugHost:       conf.GetString("server.debugHost"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
		},
		Geocoder: GeocoderConfig{
			URL:      conf.GetString("geocoder.url"),
			Language: conf.GetString("geocoder.language"),
			Timeout:  conf.GetDuration("geocoder.timeout"),
		},
		Geolocation: GeolocationConfig{
			Driver:    CleanString(conf.GetString("geolocation.driver"), true /* lower */),
			Latitude:  conf.GetFloat64("geolocation.latitude"),
			Longitude: conf.GetFloat64("geolocation.longitude"),
			Accuracy:  conf.GetFloat64("geolocation.accuracy"),
		},
		Dispatch: DispatchConfig{
			Driver:  CleanString(conf.GetString("dispatch.driver"), true /* lower */),
			URL:     conf.GetString("dispatch.url"),
			Token:   conf.GetString("dispatch.token"),
			Timeout: conf.GetDuration("dispatch.timeout"),
		},
		ClickHouse: ClickHouseConfig{
			Host:     conf.GetString("clickhouse.host"),
			Port:     conf.GetString("clickhouse.port"),
			Database: conf.GetString("clickhouse.database"),
			Username: conf.GetString("clickhouse.username"),
			Password: conf.GetString("clickhouse.password"),
			Table:    conf.GetString("clickhouse.table"),
		},
		DynamoDB: DynamoDBConfig{
			Region: conf.GetString("dynamodb.region"),
			Table:  conf.GetString("dynamodb.table"),
		},
	}
}
