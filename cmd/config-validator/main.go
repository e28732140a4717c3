package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vizlog/vizlog/internal/config"
)

func main() {
	quiet := flag.Bool("q", false, "Suppress output, exit code only")
	flag.Parse()

	if len(flag.Args()) < 1 {
		fmt.Println("Usage: config-validator [-q] <config-file>")
		os.Exit(1)
	}
	configPath := flag.Args()[0]

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !*quiet {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		if !*quiet {
			fmt.Printf("Validation error: %v\n", err)
		}
		os.Exit(1)
	}

	warnings := deploymentWarnings(cfg)
	if !*quiet {
		for _, warning := range warnings {
			fmt.Printf("Warning: %s\n", warning)
		}
		fmt.Println("Configuration is valid!")
	}
}

// deploymentWarnings applies advisory checks beyond the validation
// LoadConfig and ValidateConfig already performed, collecting every
// finding instead of stopping at the first.
func deploymentWarnings(cfg *config.Config) []string {
	var problems []string

	enabled := 0
	for _, dest := range cfg.LogDestinations {
		if !dest.Enabled {
			continue
		}
		enabled++

		if dest.Type == "gelf" && dest.Protocol == "udp" && dest.CompressionType == "none" {
			problems = append(problems, fmt.Sprintf(
				"destination '%s': uncompressed GELF over UDP wastes bandwidth, consider compression_type gzip", dest.Name))
		}
		if dest.Type == "file" && dest.Rotation.MaxSize == "" && dest.Rotation.MaxAge == "" {
			problems = append(problems, fmt.Sprintf(
				"destination '%s': no rotation configured, the log file will grow without bound", dest.Name))
		}
	}
	if enabled == 0 {
		problems = append(problems, "no log destination is enabled, received records would be discarded")
	}

	if cfg.Security.Token.Secret == "" {
		problems = append(problems, "security.token.secret is empty, any program can connect")
	} else if len(cfg.Security.Token.Secret) < 16 {
		problems = append(problems, "security.token.secret is shorter than 16 characters")
	}

	if cfg.Server.RequestLimits.RateLimit == 0 {
		problems = append(problems, "server.request_limits.rate_limit is disabled, a runaway program can flood the collector")
	}
	if cfg.Server.RequestLimits.MaxRecordSize == 0 {
		problems = append(problems, "server.request_limits.max_record_size is disabled, oversized records will be stored untruncated")
	}

	return problems
}
