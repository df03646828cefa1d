package config

import "time"

const (
	LogPrefix = "[assistanthub]"

	DefaultAddr     = ":8080"
	DefaultTimezone = "Local"

	DefaultModel       = "gpt-4o-mini"
	DefaultVisionModel = "gpt-4o-mini"
	DefaultSTTModel    = "whisper-1"

	DefaultMaxLLMRetries             = 3
	DefaultLLMRetryInitBackoff       = 250 * time.Millisecond
	DefaultLLMRetryMaxBackoff        = 5 * time.Second
	DefaultModelRequestsPerMin       = 60
	DefaultToolHTTPTimeout           = 15 * time.Second
	DefaultSearchResults             = 3
	DefaultNewsHeadlines             = 5
	DefaultMaxFileChars              = 4000
	DefaultMaxUploadBytes      int64 = 10 * 1024 * 1024

	DefaultNewsFeedURL   = "https://feeds.bbci.co.uk/news/rss.xml"
	DefaultJokeURL       = "https://icanhazdadjoke.com/"
	DefaultSearchURL     = "https://html.duckduckgo.com/html/"
	DefaultGeocodeURL    = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL   = "https://api.open-meteo.com/v1/forecast"
	DefaultStockQuoteURL = "https://stooq.com/q/l/"
	DefaultSMTPPort      = 587
	DefaultSecondFactor  = "123456"
)
