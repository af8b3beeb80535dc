// Package config loads service configuration with Viper: a YAML file,
// then an optional .env file, then prefixed environment variables.
//
//	var cfg Config
//	err := config.LoadConfig("speechbridge", &cfg)
//
// Every config struct follows the same contract: ApplyDefaults fills zero
// values and Validate reports the first invalid field.
package config
