package ws

import (
	"errors"

	"github.com/jortega/partidasync/internal/model"
)

// Error codes carried on typed error events
const (
	CodeUnauthenticated = "NO_AUTENTICADO"
	CodeNotFound        = "NO_ENCONTRADA"
	CodeConflict        = "CONFLICTO"
	CodeUnauthorized    = "NO_AUTORIZADO"
	CodePersistence     = "PERSISTENCIA"
	CodeInvalidPayload  = "PAYLOAD_INVALIDO"
	CodeCodesExhausted  = "CODIGOS_AGOTADOS"
)

// WireError is the payload of every typed error event
type WireError struct {
	Message string `json:"mensaje"`
	Code    string `json:"codigo"`
}

// toWireError maps an error to the client-facing payload. Every rejected
// action gets a specific reason the client can render directly.
func toWireError(err error) WireError {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return WireError{"Debes iniciar sesión para realizar esta acción", CodeUnauthenticated}
	case errors.Is(err, model.ErrGameNotFound):
		return WireError{"Partida no encontrada", CodeNotFound}
	case errors.Is(err, model.ErrUserNotFound):
		return WireError{"Usuario no encontrado", CodeNotFound}
	case errors.Is(err, model.ErrGameFull):
		return WireError{"La partida está llena", CodeConflict}
	case errors.Is(err, model.ErrAlreadyJoined):
		return WireError{"Ya estás unido a esta partida", CodeConflict}
	case errors.Is(err, model.ErrGameNotJoinable):
		return WireError{"La partida no admite nuevos jugadores", CodeConflict}
	case errors.Is(err, model.ErrGameAlreadyStarted):
		return WireError{"La partida ya ha comenzado", CodeConflict}
	case errors.Is(err, model.ErrDuplicateCode):
		return WireError{"El código de partida ya existe", CodeConflict}
	case errors.Is(err, model.ErrNotCreator):
		return WireError{"Solo el creador de la partida puede realizar esta acción", CodeUnauthorized}
	case errors.Is(err, model.ErrMissingConfig):
		return WireError{"Falta la configuración de la partida", CodeInvalidPayload}
	case errors.Is(err, model.ErrInvalidPayload):
		return WireError{"Datos del evento inválidos", CodeInvalidPayload}
	case errors.Is(err, model.ErrCodeGenerationExhausted):
		return WireError{"No se pudo generar un código único de partida", CodeCodesExhausted}
	default:
		return WireError{"No se pudo acceder al almacenamiento", CodePersistence}
	}
}
