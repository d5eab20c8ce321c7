package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/LabStock-api/internal/application/dto"
	"github.com/jhoicas/LabStock-api/internal/application/stock"
	"github.com/jhoicas/LabStock-api/internal/application/usecase"
	"github.com/jhoicas/LabStock-api/internal/domain"
	"github.com/jhoicas/LabStock-api/internal/domain/entity"
	"github.com/jhoicas/LabStock-api/internal/domain/repository"
)

// StockHandler maneja las operaciones de stock y el historial (protegido).
type StockHandler struct {
	uc *stock.StockUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(uc *stock.StockUseCase) *StockHandler {
	return &StockHandler{uc: uc}
}

// mapStockError traduce los errores del motor de stock a respuestas HTTP.
func mapStockError(c *fiber.Ctx, err error) error {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUANTITY", Message: "la cantidad debe ser un entero positivo"})
	case errors.Is(err, domain.ErrMissingLotMetadata):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_LOT_METADATA", Message: "lote nuevo requiere fecha de caducidad y de recepción"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":      "INSUFFICIENT_STOCK",
			"message":   "stock insuficiente",
			"available": insufficient.Available,
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// StockIn godoc
// @Summary      Registrar entrada de stock
// @Description  Crea el lote si (reagent_id, lot_number) no existe activo; si existe, incrementa su cantidad.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockInRequest  true  "reagent_id, lot_number, quantity; fechas obligatorias para lote nuevo"
// @Success      201   {object}  dto.StockInResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/in [post]
func (h *StockHandler) StockIn(c *fiber.Ctx) error {
	var in dto.StockInRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lot, action, err := h.uc.StockIn(c.Context(), stock.StockInInput{
		ReagentID:       in.ReagentID,
		LotNumber:       in.LotNumber,
		Quantity:        in.Quantity,
		ExpiryDate:      in.ExpiryDate,
		DateOfReception: in.DateOfReception,
		UserID:          GetUserID(c),
		Notes:           in.Notes,
	})
	if err != nil {
		return mapStockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StockInResponse{
		Lot:    *usecase.ToLotResponse(lot, time.Now()),
		Action: action,
	})
}

// StockOut godoc
// @Summary      Registrar salida de stock
// @Description  Descuenta del lote; falla con 409 si la cantidad excede el stock disponible.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockOutRequest  true  "lot_id, quantity"
// @Success      200   {object}  dto.LotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/out [post]
func (h *StockHandler) StockOut(c *fiber.Ctx) error {
	var in dto.StockOutRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lot, err := h.uc.StockOut(c.Context(), stock.StockOutInput{
		LotID:    in.LotID,
		Quantity: in.Quantity,
		UserID:   GetUserID(c),
		Notes:    in.Notes,
	})
	if err != nil {
		return mapStockError(c, err)
	}
	return c.JSON(usecase.ToLotResponse(lot, time.Now()))
}

// DeleteLot godoc
// @Summary      Dar de baja un lote
// @Description  Pone el stock residual a cero con un movimiento etiquetado (adjustment/expired/damaged) y marca el lote inactivo.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del lote"
// @Param        body  body  dto.DeleteLotRequest  false  "reason opcional, defecto adjustment"
// @Success      204
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [delete]
func (h *StockHandler) DeleteLot(c *fiber.Ctx) error {
	var in dto.DeleteLotRequest
	// body opcional
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	if err := h.uc.DeleteLot(c.Context(), c.Params("id"), GetUserID(c), in.Reason, in.Notes); err != nil {
		return mapStockError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteReagent godoc
// @Summary      Dar de baja un reactivo
// @Description  Da de baja el reactivo y todos sus lotes activos en una sola transacción. El historial queda intacto.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del reactivo"
// @Success      204
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reagents/{id} [delete]
func (h *StockHandler) DeleteReagent(c *fiber.Ctx) error {
	if err := h.uc.DeleteReagent(c.Context(), c.Params("id"), GetUserID(c)); err != nil {
		return mapStockError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// History godoc
// @Summary      Historial de movimientos de un reactivo
// @Description  Más reciente primero. Filtros: type, lot_id, from, to, limit, offset.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id    path   string  true   "ID del reactivo"
// @Param        type  query  string  false  "in | out | adjustment | expired | damaged"
// @Success      200   {array}   dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reagents/{id}/history [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	var q dto.HistoryQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "query inválida"})
	}
	if q.Type != "" && !entity.ValidMovementType(q.Type) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tipo de movimiento inválido"})
	}
	movements, err := h.uc.History(c.Context(), c.Params("id"), repository.MovementFilter{
		Type:   q.Type,
		LotID:  q.LotID,
		From:   q.From,
		To:     q.To,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		return mapStockError(c, err)
	}
	return c.JSON(toMovementResponses(movements))
}

// LotHistory godoc
// @Summary      Historial de un lote en orden cronológico
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del lote"
// @Success      200   {array}   dto.MovementResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/history [get]
func (h *StockHandler) LotHistory(c *fiber.Ctx) error {
	movements, err := h.uc.LotHistory(c.Context(), c.Params("id"))
	if err != nil {
		return mapStockError(c, err)
	}
	return c.JSON(toMovementResponses(movements))
}

func toMovementResponses(movements []*entity.StockMovement) []dto.MovementResponse {
	items := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		items = append(items, dto.MovementResponse{
			ID:             m.ID,
			LotID:          m.LotID,
			ReagentID:      m.ReagentID,
			Type:           m.Type,
			Quantity:       m.Quantity,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			PerformedBy:    m.PerformedBy,
			PerformedAt:    m.PerformedAt,
			Notes:          m.Notes,
		})
	}
	return items
}
