package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds every configuration parameter from the external interface
// contract (environment variables), plus the operator knobs this
// implementation adds on top (counter TTL, lock TTL, variants key).
type Config struct {
	// Counter store (Redis)
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// CounterTTL bounds the lifetime of a counter hash; zero disables
	// expiry entirely (keys persist indefinitely).
	CounterTTL time.Duration

	// Datafile repository
	DatafilesDir string
	// VariantsKey parameterizes the variant-array key per feature, to
	// accommodate a future schema's equivalent of "variations".
	VariantsKey string

	// Recalculation scheduler
	UpdateInterval        time.Duration
	MinExposuresForUpdate uint64
	SamplerTrials         int
	LockTTL               time.Duration

	// HTTP server
	Host string
	Port int

	// Ambient
	LogLevel string
}

// Addr returns the HTTP bind address in host:port form.
func (c Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// String renders the configuration for a single startup log line, in the
// section/field layout this codebase uses for its own server config dumps.
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(strings.ToUpper(title))
		sb.WriteString("\n")
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("HTTP Server")
	addField("Bind Address", c.Addr())

	addSection("Counter Store")
	addField("Redis Address", fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort))
	addField("Redis DB", strconv.Itoa(c.RedisDB))
	addField("Counter TTL", durationOrNever(c.CounterTTL))

	addSection("Datafile Repository")
	addField("Datafiles Dir", c.DatafilesDir)
	addField("Variants Key", c.VariantsKey)

	addSection("Recalculation Scheduler")
	addField("Update Interval", c.UpdateInterval.String())
	addField("Min Exposures For Update", strconv.FormatUint(c.MinExposuresForUpdate, 10))
	addField("Sampler Trials", strconv.Itoa(c.SamplerTrials))
	addField("Lock TTL", c.LockTTL.String())

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

func durationOrNever(d time.Duration) string {
	if d <= 0 {
		return "disabled"
	}
	return d.String()
}
