package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
// Cualquier error que NO sea uno de estos centinelas se trata como fallo de
// almacenamiento: la transacción ya fue revertida y la operación completa
// puede reintentarse sin riesgo de estado parcial.
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrInvalidQuantity    = errors.New("la cantidad debe ser un entero positivo")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrMissingLotMetadata = errors.New("un lote nuevo requiere fecha de caducidad y fecha de recepción")
)

// InsufficientStockError envuelve ErrInsufficientStock con la cantidad
// disponible del lote, para que la UI pueda acotar el formulario.
type InsufficientStockError struct {
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: disponible %s", e.Available.String())
}

// Unwrap permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
