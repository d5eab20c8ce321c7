package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/LabStock-api/internal/application/alerts"
	"github.com/jhoicas/LabStock-api/internal/application/auth"
	"github.com/jhoicas/LabStock-api/internal/application/export"
	"github.com/jhoicas/LabStock-api/internal/application/stock"
	"github.com/jhoicas/LabStock-api/internal/application/usecase"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC          *auth.AuthUseCase
	ReagentUC       *usecase.ReagentUseCase
	StockUC         *stock.StockUseCase
	ExportUC        *export.ExportUseCase
	AlertUC         *alerts.AlertUseCase
	DigestSender    alerts.DigestSender
	AlertRecipients []string
	JWTSecret       string
}

// Router registra las rutas de la API.
//
// RBAC: consulta solo lee; tecnico además mueve stock; admin además borra
// lotes/reactivos y dispara el envío del digest.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	canWrite := RequireRole(entity.RoleAdmin, entity.RoleTecnico)
	adminOnly := RequireRole(entity.RoleAdmin)

	// Reagents (protegido)
	reagentHandler := NewReagentHandler(deps.ReagentUC)
	stockHandler := NewStockHandler(deps.StockUC)
	exportHandler := NewExportHandler(deps.ExportUC)

	reagents := protected.Group("/reagents")
	reagents.Post("/", canWrite, reagentHandler.Create)
	reagents.Get("/", reagentHandler.List)
	reagents.Get("/:id", reagentHandler.GetByID)
	reagents.Put("/:id", canWrite, reagentHandler.Update)
	reagents.Delete("/:id", adminOnly, stockHandler.DeleteReagent)
	reagents.Get("/:id/lots", reagentHandler.ListLots)
	reagents.Get("/:id/history", stockHandler.History)
	reagents.Get("/:id/labels", exportHandler.LotLabels)

	// Stock operations (protegido)
	stockGroup := protected.Group("/stock")
	stockGroup.Post("/in", canWrite, stockHandler.StockIn)
	stockGroup.Post("/out", canWrite, stockHandler.StockOut)

	// Lots (protegido)
	lots := protected.Group("/lots")
	lots.Get("/:id/history", stockHandler.LotHistory)
	lots.Delete("/:id", adminOnly, stockHandler.DeleteLot)

	// Export (protegido)
	exportGroup := protected.Group("/export")
	exportGroup.Get("/inventory", exportHandler.Inventory)

	// Alerts (protegido)
	alertHandler := NewAlertHandler(deps.AlertUC, deps.DigestSender, deps.AlertRecipients)
	alertsGroup := protected.Group("/alerts")
	alertsGroup.Get("/digest", alertHandler.Digest)
	alertsGroup.Post("/digest/send", adminOnly, alertHandler.SendDigest)
}
