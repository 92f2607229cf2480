package ws

import "encoding/json"

// Inbound event names
const (
	EventLogin          = "login"
	EventLogout         = "logout"
	EventCreateGame     = "crearPartida"
	EventJoinGame       = "unirseAPartida"
	EventStartGame      = "iniciarPartida"
	EventCancelGame     = "cancelarPartida"
	EventChatMessage    = "mensajeChat"
	EventUpdatePosition = "actualizarPosicion"
	EventPositionBatch  = "actualizarPosicionLote"
	EventListGames      = "obtenerPartidasDisponibles"
)

// Outbound event names
const (
	EventLoginOK          = "loginExitoso"
	EventLoginError       = "loginError"
	EventLogoutOK         = "logoutExitoso"
	EventGameCreated      = "partidaCreada"
	EventCreateError      = "errorCrearPartida"
	EventJoined           = "unidoAPartida"
	EventJoinError        = "errorUnirse"
	EventPlayerJoined     = "jugadorUnido"
	EventGameStarted      = "partidaIniciada"
	EventStartError       = "errorIniciar"
	EventGameCancelled    = "partidaCancelada"
	EventCancelError      = "errorCancelar"
	EventPositionUpdated  = "posicionActualizada"
	EventBatchResult      = "resultadoLote"
	EventSessionDisplaced = "sesionReemplazada"
	EventServerError      = "errorServidor"
)

// Envelope is the wire frame carrying one named event and its payload
type Envelope struct {
	Event string          `json:"evento"`
	Data  json.RawMessage `json:"datos,omitempty"`
}
