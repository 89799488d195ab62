// Package util holds shared command-line helpers: help-text wrapping and the
// viper/godotenv environment bootstrap every command needs before it reads
// its own flags.
package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Wrap is the number of characters to wrap help text at.
const Wrap int = 50

// WrapString wraps a string at Wrap characters.
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitEnv loads .env/.env.local and configures viper to read unprefixed
// environment variables, with "-" in flag names mapping to "_" (so
// "redis-host" resolves from REDIS_HOST, matching the documented external
// contract rather than a project-specific prefix).
func InitEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper so a flag's bare env
// var (e.g. PORT for --port) and the flag itself resolve through the same
// lookup.
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
