package config

const (
	// EnvPrefix namespaces every environment variable the app reads.
	EnvPrefix = "trendora"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
