// Package config loads trustgate settings from the environment with cleanenv.
//
// An optional .env file is applied first with godotenv. Every section has a
// Validate method, and Config.Validate aggregates their errors into one
// ValidationErrors value:
//
//	cfg, err := config.Load(".env")
//	if err != nil {
//		return err
//	}
//	if err := cfg.Validate(); err != nil {
//		return err // lists every invalid field
//	}
package config
