// Package config holds the service's configuration struct and its startup
// pretty-printer. The viper/cobra/godotenv wiring that fills it from flags
// and bare environment variables (REDIS_HOST, PORT, ...) lives in cmd/util
// and cmd/serve.
package config
