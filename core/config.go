package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridApiKey   string
		WorkDir          string

		Database DatabaseConfig
		Server   ServerConfig
	}
)

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration of the current ENV (DEV by default).
// Values are read from the environment, prefixed with the ENV name (eg. PROD_DATABASE_HOST),
// after loading `config/.env.<env>` if it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Academia")
	v.SetDefault("secretKey", "dev-secret-key-!change-me-in-prod-f8#2kq1zv")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "Academia <noreply@localhost>")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "academia")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("server.disableReqLogs", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		WorkDir:          wd,
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
	}
}

// NewTestConfig returns a Config suited for tests, without touching the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		AppName:          "Academia",
		SecretKey:        "secret",
		FrontendBaseURL:  "http://localhost:8080",
		DefaultFromEmail: mail.Address{Name: "Academia", Address: "noreply@localhost"},
		Server: ServerConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           time.Second,
			DisableReqLogs:            true,
		},
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("%s@%s (debug=%t)", c.AppName, c.Env, c.Debug)
}
