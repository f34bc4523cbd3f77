package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
// It is used when storage.driver is "postgres" and storage.url is empty.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	ParameterStore ParameterStoreConfig `mapstructure:"parameter_store"`
}

// ParameterStoreConfig names the SSM parameters holding production credentials.
type ParameterStoreConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	HostParam     string `mapstructure:"host_param"`
	UserParam     string `mapstructure:"user_param"`
	PasswordParam string `mapstructure:"password_param"`
}

// DSN builds a libpq connection string. With the parameter store enabled,
// host, user and password are read from SSM instead of the config file.
func (cfg *PostgresConfig) DSN(ctx context.Context) (string, error) {
	host, user, password, err := cfg.credentials(ctx)
	if err != nil {
		return "", err
	}
	return cfg.dsn(host, user, password, cfg.DBName), nil
}

// MaintenanceDSN points at the built-in "postgres" database, used to create DBName.
func (cfg *PostgresConfig) MaintenanceDSN(ctx context.Context) (string, error) {
	host, user, password, err := cfg.credentials(ctx)
	if err != nil {
		return "", err
	}
	return cfg.dsn(host, user, password, "postgres"), nil
}

func (cfg *PostgresConfig) credentials(ctx context.Context) (host, user, password string, err error) {
	if !cfg.ParameterStore.Enabled {
		return cfg.Host, cfg.User, cfg.Password, nil
	}
	if host, err = getParameterStoreValue(ctx, cfg.ParameterStore.HostParam, true); err != nil {
		return "", "", "", err
	}
	if user, err = getParameterStoreValue(ctx, cfg.ParameterStore.UserParam, true); err != nil {
		return "", "", "", err
	}
	if password, err = getParameterStoreValue(ctx, cfg.ParameterStore.PasswordParam, true); err != nil {
		return "", "", "", err
	}
	return host, user, password, nil
}

func (cfg *PostgresConfig) dsn(host, user, password, dbName string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbName, cfg.SSLMode,
	)
	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}
	return dsn
}

func getParameterStoreValue(ctx context.Context, parameterName string, decrypt bool) (string, error) {
	if parameterName == "" {
		return "", fmt.Errorf("parameter store: empty parameter name")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(awsCfg)

	result, err := client.GetParameter(ctxWithTimeout, &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", parameterName)
	}

	return *result.Parameter.Value, nil
}
