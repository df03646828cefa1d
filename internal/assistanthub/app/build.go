package app

import (
	"fmt"
	"net/http"
	"time"

	"assistanthub/internal/assistanthub/auth"
	"assistanthub/internal/assistanthub/config"
	"assistanthub/internal/assistanthub/conversation"
	"assistanthub/internal/assistanthub/files"
	"assistanthub/internal/assistanthub/gateway"
	"assistanthub/internal/assistanthub/httpapi"
	"assistanthub/internal/assistanthub/media"
	"assistanthub/internal/assistanthub/notify"
	"assistanthub/internal/assistanthub/reminder"
	"assistanthub/internal/assistanthub/router"
	"assistanthub/internal/assistanthub/tools"
	"assistanthub/pkg/x/httpx"
	"assistanthub/pkg/x/llm"
)

// Components is the wired assistant shared by the serve and chat commands.
type Components struct {
	Config    *config.Config
	Location  *time.Location
	Gateway   *gateway.Gateway
	Sessions  *conversation.Store
	Hub       *notify.Hub
	Scheduler *reminder.Scheduler
	Router    *router.Router
	Accounts  *auth.Accounts

	Transcriber media.Transcriber
	Images      media.ImageText
}

type BuildOptions struct {
	// Opener launches sites. Nil uses the system browser.
	Opener tools.Opener
	// Channels are extra reminder sinks, after the log, websocket and mail sinks.
	Channels []reminder.Channel
	// Now overrides the clock of the router and scheduler.
	Now func() time.Time
}

func Build(cfg *config.Config, opts BuildOptions) (*Components, error) {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}
	toolClient, err := httpx.NewClient(httpx.ClientOptions{
		Timeout:     config.DefaultToolHTTPTimeout,
		Proxy:       cfg.Tools.Proxy,
		UseEnvProxy: true,
	})
	if err != nil {
		return nil, fmt.Errorf("tools http client: %w", err)
	}

	gw := gateway.New(gateway.Options{
		Chat:              cfg.ChatConfig(),
		VisionModel:       cfg.Model.VisionModel,
		MaxRetries:        cfg.Model.MaxRetries,
		InitialBackoff:    config.DefaultLLMRetryInitBackoff,
		MaxBackoff:        config.DefaultLLMRetryMaxBackoff,
		RequestsPerMinute: cfg.Model.RequestsPerMinute,
		LogPrefix:         config.LogPrefix,
	})

	hub := notify.NewHub(config.LogPrefix)
	channels := []reminder.Channel{
		{Name: "log", Notifier: reminder.LogNotifier{LogPrefix: config.LogPrefix}},
		{Name: "websocket", Notifier: hub},
	}
	if cfg.Mail.Enabled() {
		mailer := notify.NewMailer(notify.MailerOptions{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		channels = append(channels, reminder.Channel{Name: "mail", Notifier: mailer})
	}
	channels = append(channels, opts.Channels...)

	sched, err := reminder.NewScheduler(reminder.SchedulerOptions{
		Notifier:  reminder.MultiNotifier{LogPrefix: config.LogPrefix, Channels: channels},
		StorePath: cfg.Reminders.StorePath,
		LogPrefix: config.LogPrefix,
		Now:       opts.Now,
	})
	if err != nil {
		return nil, err
	}

	accounts, err := auth.New(auth.Options{
		StorePath:        cfg.Server.AccountsPath,
		SecondFactorCode: cfg.Server.SecondFactorCode,
		LogPrefix:        config.LogPrefix,
	})
	if err != nil {
		return nil, err
	}

	opener := opts.Opener
	if opener == nil {
		opener = tools.BrowserOpener{}
	}
	reminders := &reminder.Service{
		Scheduler: sched,
		Model:     gw,
		Location:  loc,
		LogPrefix: config.LogPrefix,
		Now:       opts.Now,
	}
	rt := router.New(router.Deps{
		Model:        gw,
		Files:        files.NewResolver(cfg.Files.SearchRoot),
		Reminders:    reminders,
		Opener:       opener,
		Joke:         tools.Joke{Client: toolClient, URL: cfg.Tools.JokeURL},
		Search:       tools.Search{Client: toolClient, URL: cfg.Tools.SearchURL, Limit: config.DefaultSearchResults},
		Weather:      tools.Weather{Client: toolClient, GeocodeURL: cfg.Tools.GeocodeURL, ForecastURL: cfg.Tools.ForecastURL},
		News:         tools.News{Client: toolClient, FeedURL: cfg.Tools.NewsFeedURL, Limit: config.DefaultNewsHeadlines},
		Stock:        tools.Stock{Client: toolClient, URL: cfg.Tools.StockQuoteURL},
		MaxFileChars: cfg.Files.MaxFileChars,
		Location:     loc,
		Now:          opts.Now,
		LogPrefix:    config.LogPrefix,
	})

	return &Components{
		Config:    cfg,
		Location:  loc,
		Gateway:   gw,
		Sessions:  conversation.NewStore(),
		Hub:       hub,
		Scheduler: sched,
		Router:    rt,
		Accounts:  accounts,

		Transcriber: media.Transcriber{Client: llm.NewHTTPClient(), BaseURL: cfg.Model.BaseURL, APIKey: cfg.Model.APIKey, Model: cfg.Model.STTModel},
		Images:      media.ImageText{Model: gw, MaxBytes: config.DefaultMaxUploadBytes},
	}, nil
}

// Handler exposes c over HTTP.
func (c *Components) Handler() http.Handler {
	return httpapi.New(httpapi.Options{
		Router:         c.Router,
		Sessions:       c.Sessions,
		Accounts:       c.Accounts,
		Reminders:      c.Scheduler,
		Hub:            c.Hub,
		Transcriber:    c.Transcriber,
		Images:         c.Images,
		MaxUploadBytes: config.DefaultMaxUploadBytes,
		LogPrefix:      config.LogPrefix,
	})
}
