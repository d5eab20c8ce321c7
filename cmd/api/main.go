package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/LabStock-api/internal/application/alerts"
	"github.com/jhoicas/LabStock-api/internal/application/auth"
	"github.com/jhoicas/LabStock-api/internal/application/export"
	"github.com/jhoicas/LabStock-api/internal/application/stock"
	"github.com/jhoicas/LabStock-api/internal/application/usecase"
	infraexcel "github.com/jhoicas/LabStock-api/internal/infrastructure/excel"
	inframail "github.com/jhoicas/LabStock-api/internal/infrastructure/mail"
	infrapdf "github.com/jhoicas/LabStock-api/internal/infrastructure/pdf"
	"github.com/jhoicas/LabStock-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/LabStock-api/internal/interfaces/http"
	"github.com/jhoicas/LabStock-api/pkg/config"
	"github.com/jhoicas/LabStock-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	reagentRepo := postgres.NewReagentRepository(pool)
	lotRepo := postgres.NewLotRepository(pool)
	movRepo := postgres.NewStockMovementRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	reagentUC := usecase.NewReagentUseCase(reagentRepo, lotRepo)
	stockUC := stock.NewStockUseCase(txRunner, reagentRepo, lotRepo, movRepo)
	exportUC := export.NewExportUseCase(
		reagentRepo, lotRepo, movRepo,
		infraexcel.NewWorkbookBuilder(),
		infrapdf.NewMarotoLabelGenerator(),
	)
	alertUC := alerts.NewAlertUseCase(reagentRepo, lotRepo, cfg.Alerts.ExpiryWindowDays)

	// SMTP solo si está configurado; sin él, el digest solo se consulta por API.
	var digestSender alerts.DigestSender
	if cfg.SMTP.Host != "" && cfg.SMTP.From != "" {
		digestSender = inframail.NewSMTPSender(inframail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		log.Warn().Msg("SMTP sin configurar: el digest de alertas no se enviará por correo")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "LabStock API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:          authUC,
		ReagentUC:       reagentUC,
		StockUC:         stockUC,
		ExportUC:        exportUC,
		AlertUC:         alertUC,
		DigestSender:    digestSender,
		AlertRecipients: cfg.Alerts.Recipients,
		JWTSecret:       cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
