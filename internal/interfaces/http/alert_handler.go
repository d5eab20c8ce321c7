package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/LabStock-api/internal/application/alerts"
	"github.com/jhoicas/LabStock-api/internal/application/dto"
)

// AlertHandler sirve el digest de alertas (stock bajo + caducidades).
type AlertHandler struct {
	uc         *alerts.AlertUseCase
	sender     alerts.DigestSender
	recipients []string
}

// NewAlertHandler construye el handler. sender puede ser nil si no hay SMTP configurado.
func NewAlertHandler(uc *alerts.AlertUseCase, sender alerts.DigestSender, recipients []string) *AlertHandler {
	return &AlertHandler{uc: uc, sender: sender, recipients: recipients}
}

// Digest godoc
// @Summary      Digest de alertas
// @Description  Reactivos en o bajo stock mínimo y lotes que caducan dentro de la ventana configurada.
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AlertDigest
// @Router       /api/alerts/digest [get]
func (h *AlertHandler) Digest(c *fiber.Ctx) error {
	digest, err := h.uc.BuildDigest(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(digest)
}

// SendDigest godoc
// @Summary      Enviar el digest de alertas por correo
// @Description  No envía nada si el digest está vacío o no hay destinatarios ni SMTP configurados.
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AlertDigest
// @Router       /api/alerts/digest/send [post]
func (h *AlertHandler) SendDigest(c *fiber.Ctx) error {
	if h.sender == nil || len(h.recipients) == 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "MAIL_NOT_CONFIGURED", Message: "SMTP o destinatarios sin configurar"})
	}
	digest, err := h.uc.SendDigest(c.Context(), h.sender, h.recipients)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(digest)
}
