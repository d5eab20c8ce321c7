package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin    = "admin"    // gestiona catálogo, borra lotes y reactivos
	RoleTecnico  = "tecnico"  // registra entradas y salidas de stock
	RoleConsulta = "consulta" // solo lectura: historial, exportes, alertas
)

// User representa un usuario del laboratorio.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, tecnico, consulta
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
