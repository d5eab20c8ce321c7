package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/LabStock-api/internal/application/dto"
	"github.com/jhoicas/LabStock-api/internal/application/export"
	"github.com/jhoicas/LabStock-api/internal/domain"
)

// ExportHandler sirve el libro Excel del inventario y las etiquetas de lotes.
type ExportHandler struct {
	uc *export.ExportUseCase
}

// NewExportHandler construye el handler.
func NewExportHandler(uc *export.ExportUseCase) *ExportHandler {
	return &ExportHandler{uc: uc}
}

// Inventory godoc
// @Summary      Exportar inventario a Excel
// @Description  Libro con hojas de reactivos, lotes activos y movimientos.
// @Tags         export
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /api/export/inventory [get]
func (h *ExportHandler) Inventory(c *fiber.Ctx) error {
	data, err := h.uc.BuildInventoryWorkbook(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	filename := "inventario-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// LotLabels godoc
// @Summary      Hoja PDF de etiquetas de los lotes de un reactivo
// @Description  Cada etiqueta lleva número de lote, fechas y QR con el ID del lote.
// @Tags         export
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "ID del reactivo"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reagents/{id}/labels [get]
func (h *ExportHandler) LotLabels(c *fiber.Ctx) error {
	data, err := h.uc.BuildLotLabels(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "reactivo no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="etiquetas.pdf"`)
	return c.Send(data)
}
