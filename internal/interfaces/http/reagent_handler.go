package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/LabStock-api/internal/application/dto"
	"github.com/jhoicas/LabStock-api/internal/application/usecase"
	"github.com/jhoicas/LabStock-api/internal/domain"
)

// ReagentHandler maneja el CRUD de reactivos (protegido).
type ReagentHandler struct {
	uc *usecase.ReagentUseCase
}

// NewReagentHandler construye el handler.
func NewReagentHandler(uc *usecase.ReagentUseCase) *ReagentHandler {
	return &ReagentHandler{uc: uc}
}

// Create godoc
// @Summary      Crear reactivo
// @Tags         reagents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReagentRequest  true  "name y unit requeridos; el stock inicia en 0"
// @Success      201   {object}  dto.ReagentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reagents [post]
func (h *ReagentHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReagentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	reagent, err := h.uc.Create(in)
	if err != nil {
		if err == domain.ErrInvalidInput {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "name y unit son requeridos; minimum_stock debe ser entero no negativo"})
		}
		if err == domain.ErrDuplicate {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el reactivo ya existe"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(reagent)
}

// List godoc
// @Summary      Listar reactivos activos
// @Tags         reagents
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máx. resultados (defecto 50)"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200     {array}  dto.ReagentResponse
// @Router       /api/reagents [get]
func (h *ReagentHandler) List(c *fiber.Ctx) error {
	page := dto.PageRequest{
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}
	list, err := h.uc.List(page)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(list)
}

// GetByID godoc
// @Summary      Obtener reactivo por ID
// @Tags         reagents
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del reactivo"
// @Success      200   {object}  dto.ReagentResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reagents/{id} [get]
func (h *ReagentHandler) GetByID(c *fiber.Ctx) error {
	reagent, err := h.uc.GetByID(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if reagent == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "reactivo no encontrado"})
	}
	return c.JSON(reagent)
}

// Update godoc
// @Summary      Actualizar reactivo
// @Description  Solo campos descriptivos y stock mínimo; total_quantity no es editable.
// @Tags         reagents
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del reactivo"
// @Param        body  body  dto.UpdateReagentRequest  true  "campos a actualizar"
// @Success      200   {object}  dto.ReagentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reagents/{id} [put]
func (h *ReagentHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateReagentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	reagent, err := h.uc.Update(c.Params("id"), in)
	if err != nil {
		if err == domain.ErrInvalidInput {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "minimum_stock debe ser entero no negativo"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	if reagent == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "reactivo no encontrado"})
	}
	return c.JSON(reagent)
}

// ListLots godoc
// @Summary      Listar lotes activos de un reactivo
// @Tags         reagents
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del reactivo"
// @Success      200   {array}   dto.LotResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/reagents/{id}/lots [get]
func (h *ReagentHandler) ListLots(c *fiber.Ctx) error {
	lots, err := h.uc.ListLots(c.Params("id"))
	if err != nil {
		if err == domain.ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "reactivo no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(lots)
}
