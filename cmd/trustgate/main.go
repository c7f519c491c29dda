package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/trustgate/pkg/config"
	"github.com/tendant/trustgate/pkg/db"
	"github.com/tendant/trustgate/pkg/device"
	deviceapi "github.com/tendant/trustgate/pkg/device/api"
	"github.com/tendant/trustgate/pkg/devicetoken"
	devicetokenapi "github.com/tendant/trustgate/pkg/devicetoken/api"
	"github.com/tendant/trustgate/pkg/devicetrust"
	"github.com/tendant/trustgate/pkg/externalprovider"
	"github.com/tendant/trustgate/pkg/identity"
	"github.com/tendant/trustgate/pkg/loginflow"
	loginflowapi "github.com/tendant/trustgate/pkg/loginflow/api"
	"github.com/tendant/trustgate/pkg/notification"
	"github.com/tendant/trustgate/pkg/securitylog"
	"github.com/tendant/trustgate/pkg/session"
	sessionapi "github.com/tendant/trustgate/pkg/session/api"
)

type Services struct {
	deviceService *device.DeviceService
	tokenService  *devicetoken.Service
	signer        *session.Signer
	authService   *loginflow.AuthService
	users         identity.UserDirectory
	dispatcher    *devicetrust.AsyncDispatcher
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	var pool *pgxpool.Pool
	if cfg.Persistence == "postgres" {
		if cfg.MigrateOnStart {
			if err := db.Migrate(cfg.Database.ToDatabaseURL(), db.DirectionUp); err != nil {
				slog.Error("Failed to migrate database", "error", err)
				os.Exit(1)
			}
		}

		dbConfig := cfg.Database.ToDbConfig()
		pool, err = dbutils.NewDbPool(context.Background(), dbConfig)
		if err != nil {
			slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User, "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	} else {
		slog.Warn("Using in-memory persistence; trusted devices are lost on restart")
	}

	services, err := initializeServices(pool, cfg)
	if err != nil {
		slog.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}

	devicetrust.MustRegister(prometheus.DefaultRegisterer)

	server := app.DefaultApp()
	setupRoutes(server.R, services, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go runTokenCleanup(ctx, services.tokenService, cfg.DeviceTrust.TokenCleanupEvery)

	slog.Info("Trustgate ready", "base_url", cfg.DeviceTrust.BaseURL, "persistence", cfg.Persistence)
	server.Run()

	stop()
	if services.dispatcher != nil {
		slog.Info("Waiting for pending device trust side effects")
		services.dispatcher.Wait()
	}
}

func initializeServices(pool *pgxpool.Pool, cfg config.Config) (*Services, error) {
	var (
		deviceRepo   device.DeviceRepository
		tokenRepo    devicetoken.Repository
		securityRepo securitylog.Repository
		accountRepo  externalprovider.AccountRepository
		users        identity.UserDirectory
		err          error
	)

	if pool != nil {
		deviceRepo, err = device.NewDeviceRepository("postgres", device.RepositoryConfig{DB: pool})
		if err != nil {
			return nil, err
		}
		tokenRepo = devicetoken.NewPostgresRepository(pool)
		securityRepo = securitylog.NewPostgresRepository(pool)
		accountRepo = externalprovider.NewPostgresAccountRepository(pool)
		users = identity.NewPostgresDirectory(pool)
	} else {
		deviceRepo, err = device.NewDeviceRepository("memory", device.RepositoryConfig{})
		if err != nil {
			return nil, err
		}
		tokenRepo = devicetoken.NewInMemRepository(deviceRepo)
		securityRepo = securitylog.NewInMemRepository()
		accountRepo = externalprovider.NewInMemAccountRepository()
		users = identity.NewInMemDirectory()
	}

	securityLogger := securitylog.NewLogger(securityRepo)
	deviceService := device.NewDeviceService(deviceRepo)
	tokenService := devicetoken.NewService(tokenRepo, cfg.DeviceTrust.BaseURL,
		devicetoken.WithTokenExpiry(cfg.DeviceTrust.DisableTokenTTL),
		devicetoken.WithRetention(cfg.DeviceTrust.TokenRetention),
		devicetoken.WithSecurityLog(securityLogger),
	)

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(cfg.Email.ToSMTPConfig()),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		return nil, err
	}

	var gateOpts []devicetrust.Option
	var dispatcher *devicetrust.AsyncDispatcher
	if cfg.DeviceTrust.AsyncSideEffects {
		dispatcher = devicetrust.NewAsyncDispatcher(cfg.DeviceTrust.SideEffectTimeout)
		gateOpts = append(gateOpts, devicetrust.WithDispatcher(dispatcher))
	}
	gate := devicetrust.NewGate(
		deviceService,
		tokenService,
		notification.NewDeviceAlertNotifier(notificationManager),
		securityLogger,
		gateOpts...,
	)

	signer := session.NewSigner(session.SignerConfig{
		Secret:       cfg.Session.Secret,
		Issuer:       cfg.Session.Issuer,
		MaxAgeDays:   cfg.Session.MaxAgeDays,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
	})

	// Password verification belongs to the host application; only the
	// verdict endpoint is served unless a CredentialVerifier is wired in.
	authService := loginflow.NewAuthService(loginflow.ServiceDependencies{
		Users:    users,
		Links:    externalprovider.NewLinkService(accountRepo, users, securityLogger),
		Gate:     gate,
		Enricher: session.NewEnricher(),
		Signer:   signer,
	})

	return &Services{
		deviceService: deviceService,
		tokenService:  tokenService,
		signer:        signer,
		authService:   authService,
		users:         users,
		dispatcher:    dispatcher,
	}, nil
}

func setupRoutes(r *chi.Mux, services *Services, cfg config.Config) {
	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)
	r.Handle("/metrics", promhttp.Handler())

	devicetokenapi.NewHandle(services.tokenService).Routes(r)
	loginflowapi.NewHandle(services.authService, services.signer,
		loginflowapi.WithVerdictAPIKey(cfg.DeviceTrust.VerdictAPIKey),
	).Routes(r)
	sessionapi.NewHandle(services.signer, services.users).Routes(r)
	deviceapi.NewDeviceHandler(services.deviceService, services.signer).Routes(r)
}

func runTokenCleanup(ctx context.Context, tokens *devicetoken.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := tokens.CleanupExpiredTokens(ctx)
			if err != nil {
				slog.Error("Failed to clean up expired disable tokens", "error", err)
				continue
			}
			if deleted > 0 {
				slog.Info("Cleaned up expired disable tokens", "count", deleted)
			}
		}
	}
}
