package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterReader reads a single (optionally encrypted) value from a parameter store.
type ParameterReader interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveSecrets fills the upstream API key and the redis password from AWS SSM
// Parameter Store when running in prod. Values already set in config or env win.
// Outside prod it is a no-op.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	if c.Log.Environment != "prod" {
		return nil
	}
	needKey := c.CoinGecko.REST.APIKey == "" && c.CoinGecko.REST.APIKeySSMParam != ""
	needPassword := c.Cache.Redis.Password == "" && c.Cache.Redis.PasswordSSMParam != ""
	if !needKey && !needPassword {
		return nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	return c.resolveSecretsWith(ctxWithTimeout, ssm.NewFromConfig(awsCfg))
}

func (c *Config) resolveSecretsWith(ctx context.Context, client ParameterReader) error {
	if c.CoinGecko.REST.APIKey == "" && c.CoinGecko.REST.APIKeySSMParam != "" {
		v, err := getParameterStoreValue(ctx, client, c.CoinGecko.REST.APIKeySSMParam, true)
		if err != nil {
			return fmt.Errorf("coingecko api key: %w", err)
		}
		c.CoinGecko.REST.APIKey = v
	}

	if c.Cache.Redis.Password == "" && c.Cache.Redis.PasswordSSMParam != "" {
		v, err := getParameterStoreValue(ctx, client, c.Cache.Redis.PasswordSSMParam, true)
		if err != nil {
			return fmt.Errorf("redis password: %w", err)
		}
		c.Cache.Redis.Password = v
	}
	return nil
}

func getParameterStoreValue(ctx context.Context, client ParameterReader, parameterName string, decrypt bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", parameterName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", parameterName)
	}

	return *result.Parameter.Value, nil
}
