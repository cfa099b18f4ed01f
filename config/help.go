package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `bikerent - bike rental client

Usage:
  bikerent [flags] <command> [args]

Commands:
  login <email>            authenticate and store the session
  logout                   clear the stored session
  whoami                   show the current session
  bikes                    list bikes
  book <bike-id> <start> <end>   request a booking (RFC 3339 times)
  bookings                 list your bookings
  show <booking-id>        show one booking
  cancel <booking-id>      cancel a pending/confirmed booking
  start <booking-id>       start the ride
  end <booking-id>         end the ride and print the cost breakdown
  review <bike-id> <rating> <comment>  review a bike you completed a ride on
  watch                    follow live booking status updates

Flags:
  -config-path string      path to the config yaml file
  -help                    show this message
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints the effective configuration, secrets excluded.
func PrintConfig(cfg *Config) {
	fmt.Printf("api.base_url: %s\n", cfg.API.BaseURL)
	fmt.Printf("api.timeout: %s\n", cfg.API.Timeout)
	fmt.Printf("api.retry_max: %d\n", cfg.API.RetryMax)
	fmt.Printf("auth.renew_interval: %s\n", cfg.Auth.RenewInterval)
	fmt.Printf("store.path: %s\n", cfg.Store.Path)
	fmt.Printf("stream.enabled: %v\n", cfg.Stream.Enabled)
	fmt.Printf("log_level: %s\n", cfg.LogLevel)
}
