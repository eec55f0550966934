package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/starter/handler"
	"github.com/dmitrymomot/starter/modules/account"
	"github.com/dmitrymomot/starter/modules/contact"
	"github.com/dmitrymomot/starter/modules/home"
	"github.com/dmitrymomot/starter/pkg/clientip"
	"github.com/dmitrymomot/starter/pkg/config"
	"github.com/dmitrymomot/starter/pkg/cookie"
	"github.com/dmitrymomot/starter/pkg/email"
	"github.com/dmitrymomot/starter/pkg/environment"
	"github.com/dmitrymomot/starter/pkg/flash"
	"github.com/dmitrymomot/starter/pkg/httpserver"
	"github.com/dmitrymomot/starter/pkg/logger"
	"github.com/dmitrymomot/starter/pkg/ratelimiter"
	"github.com/dmitrymomot/starter/pkg/requestid"
	"github.com/dmitrymomot/starter/pkg/session"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
	"github.com/dmitrymomot/starter/views"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_NAME" envDefault:"starter"`
	BaseURL     string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
	// StoreDriver selects the credential store: memory, mongo or postgres.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`

	ContactEmail         string `env:"CONTACT_EMAIL" envDefault:"support@example.com"`
	SenderName           string `env:"MAIL_SENDER_NAME" envDefault:"The Team"`
	BcryptCost           int    `env:"ACCOUNT_BCRYPT_COST" envDefault:"10"`
	UniformResetResponse bool   `env:"ACCOUNT_UNIFORM_RESET_RESPONSE" envDefault:"false"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)
	env := environment.Parse(cfg.Env)

	log := logger.New(
		logger.WithEnvironment(env, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, env, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, env environment.Environment, log *slog.Logger) error {
	var (
		proxyCfg   clientip.Config
		cookieCfg  cookie.Config
		sessionCfg session.Config
		limitCfg   ratelimiter.Config
		emailCfg   email.Config
		httpCfg    httpserver.Config
	)
	if err := errors.Join(
		config.Load(&proxyCfg),
		config.Load(&cookieCfg),
		config.Load(&sessionCfg),
		config.Load(&limitCfg),
		config.Load(&emailCfg),
		config.Load(&httpCfg),
	); err != nil {
		return err
	}

	clientIPs, err := clientip.NewFromConfig(proxyCfg)
	if err != nil {
		return err
	}

	users, err := openUserStore(ctx, cfg.StoreDriver, log)
	if err != nil {
		return err
	}
	defer users.close(context.WithoutCancel(ctx))

	rb := &redisBackend{log: log}
	defer rb.close(context.WithoutCancel(ctx))

	sessionStore, err := openSessionStore(ctx, sessionCfg, rb)
	if err != nil {
		return err
	}
	if c, ok := sessionStore.(closer); ok {
		defer c.Close()
	}

	limitStore, err := openRateLimitStore(ctx, limitCfg, rb)
	if err != nil {
		return err
	}
	if c, ok := limitStore.(closer); ok {
		defer c.Close()
	}
	bucket, err := ratelimiter.NewBucket(limitStore, limitCfg)
	if err != nil {
		return err
	}

	mailer, err := email.NewFromConfig(emailCfg, log)
	if err != nil {
		return err
	}

	cookies, err := cookie.NewFromConfig(cookieCfg)
	if err != nil {
		return err
	}
	sessions := session.New(
		session.WithConfig(sessionCfg),
		session.WithStore(sessionStore),
		session.WithCookieManager(cookies),
		session.WithLogger(log),
	)
	notices := flash.New(cookies, log)

	renderer, err := views.New()
	if err != nil {
		return err
	}
	errorHandler := handler.NewErrorHandler(log, renderer.ErrorHandler())
	errorPage := func(err error) http.HandlerFunc {
		return handler.Wrap(func(handler.Context, struct{}) handler.Response {
			return handler.Error(err)
		}, handler.WithErrorHandler[handler.Context, struct{}](errorHandler))
	}

	throttle := ratelimiter.Middleware(bucket,
		ratelimiter.Composite(ratelimiter.ClientIP, ratelimiter.Route),
		ratelimiter.WithRejectHandler(errorPage(handler.ErrTooManyRequests)),
		ratelimiter.WithLogger(log),
	)

	accounts := accountsvc.NewService(users.store,
		accountsvc.WithLogger(log),
		accountsvc.WithHasher(accountsvc.NewBcryptHasher(cfg.BcryptCost)),
		accountsvc.WithMailer(mailer),
		accountsvc.WithSenderName(cfg.SenderName),
	)

	accountOpts := []account.Option{
		account.WithLogger(log),
		account.WithErrorHandler(errorHandler),
		account.WithBaseURL(cfg.BaseURL),
		account.WithThrottle(throttle),
	}
	if cfg.UniformResetResponse {
		accountOpts = append(accountOpts, account.WithUniformResetResponse())
	}
	accountModule := account.New(accounts, sessions, notices, renderer.Account(), accountOpts...)

	r := chi.NewRouter()
	r.Use(
		clientIPs.Middleware,
		requestid.Middleware,
		environment.Middleware(env),
		middleware.Recoverer,
	)

	r.Get("/health/live", httpserver.HealthCheckHandler(log))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, append(users.checks, rb.checks()...)...))

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware, notices.Middleware, accountModule.LoadUser)
		r.NotFound(errorPage(handler.ErrNotFound))

		home.New(renderer.Home(), errorHandler).Routes(r)
		accountModule.Routes(r)
		contact.New(mailer, notices, renderer.Contact(), cfg.ContactEmail,
			contact.WithLogger(log),
			contact.WithErrorHandler(errorHandler),
			contact.WithThrottle(throttle),
		).Routes(r)
	})

	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, r)
}
