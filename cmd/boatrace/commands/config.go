package commands

import (
	"boatrace-results/internal/components/telemetry"
	"boatrace-results/internal/scrapers/boatrace"
)

type Config struct {
	BaseUrl   string `json:"base_url"`
	OutputDir string `json:"output_dir"`
	Verbose   bool   `json:"verbose"`
	UserAgent string `json:"user_agent"`
	// DisableBrowserTransport sends requests with the plain go transport.
	DisableBrowserTransport bool `json:"disable_browser_transport"`
	// RequestsPerSecond caps the scraper's request rate, a negative value removes the cap.
	RequestsPerSecond float64          `json:"requests_per_second"`
	Telemetry         telemetry.Config `json:"telemetry"`
}

var defaultConfig = Config{
	BaseUrl:           boatrace.DefaultBaseUrl,
	OutputDir:         ".",
	RequestsPerSecond: 2,
}

func (c Config) clientOptions() boatrace.Options {
	rps := c.RequestsPerSecond
	if rps < 0 {
		rps = 0
	}
	return boatrace.Options{
		BaseUrl:           c.BaseUrl,
		UserAgent:         c.UserAgent,
		BrowserTransport:  !c.DisableBrowserTransport,
		RequestsPerSecond: rps,
	}
}
