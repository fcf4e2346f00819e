package cmd

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/fit-check/internal/server"
	"github.com/spigell/fit-check/internal/session"
	"github.com/spigell/fit-check/internal/store"
)

const (
	app       = "fit-check"
	envPrefix = "FIT_CHECK"
)

type Config struct {
	Server      server.Config  `mapstructure:"server"`
	Auth        *AuthConfig    `mapstructure:"auth"`
	Store       store.Config   `mapstructure:"store"`
	Session     session.Config `mapstructure:"session"`
	AI          *AIConfig      `mapstructure:"ai"`
	VibesFile   string         `mapstructure:"vibes-file"`
	ExcludeFile string         `mapstructure:"exclude-file"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt-secret"`
	JWTSecretFile string        `mapstructure:"jwt-secret-file"`
	TokenTTL      time.Duration `mapstructure:"token-ttl"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fit-check rates outfit photos against a vibe and suggests pieces from your closet",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	envs := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"auth.jwt-secret":        "JWT_SECRET",
		"store.dsn":              "DATABASE_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, envPrefix+"_"+keyToEnv(key), env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fit-check.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// setDefaults registers every key so that environment overrides reach
// viper.Unmarshal.
func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.allowed-origins", []string{"*"})
	viper.SetDefault("server.rate-limit", 1.0)
	viper.SetDefault("server.rate-burst", 5)
	viper.SetDefault("auth.jwt-secret", "")
	viper.SetDefault("auth.jwt-secret-file", "")
	viper.SetDefault("auth.token-ttl", 24*time.Hour)
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "fit-check.db")
	viper.SetDefault("session.driver", "memory")
	viper.SetDefault("session.addr", "localhost:6379")
	viper.SetDefault("session.password", "")
	viper.SetDefault("session.db", 0)
	viper.SetDefault("session.ttl", session.DefaultTTL)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.api-key", "")
	viper.SetDefault("ai.gemini.api-key-file", "")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 2000)
	viper.SetDefault("vibes-file", "")
	viper.SetDefault("exclude-file", "")
}

func initConfig() {
	// .env is optional, values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config file must exist; the default one is optional.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

func keyToEnv(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
