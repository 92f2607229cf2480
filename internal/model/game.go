package model

import "time"

// GameCode is the human-shareable identifier for joining games
type GameCode string

// GameStatus represents the lifecycle state of a game
type GameStatus string

const (
	GameStatusWaiting    GameStatus = "waiting"     // Lobby open, not started
	GameStatusInProgress GameStatus = "in_progress" // Game currently active
	GameStatusFinished   GameStatus = "finished"    // Game has ended
	GameStatusCancelled  GameStatus = "cancelled"   // Cancelled by the creator
)

// GameConfig holds the creator-supplied settings for a game.
// MaxPlayers of zero means no capacity limit. AllowLateJoin permits
// joining while the game is already in progress.
type GameConfig struct {
	Name          string         `json:"nombrePartida"`
	MaxPlayers    int            `json:"maxJugadores"`
	AllowLateJoin bool           `json:"unirseEnCurso,omitempty"`
	Settings      map[string]any `json:"ajustes,omitempty"`
}

// GameRecord is the persisted state of a game lobby
type GameRecord struct {
	Code      GameCode   `json:"codigo"`
	Config    GameConfig `json:"configuracion"`
	Status    GameStatus `json:"estado"`
	CreatedAt time.Time  `json:"creadaEn"`
	UpdatedAt time.Time  `json:"actualizadaEn"`
}

// Joinable reports whether a new member may join given the current status
func (g *GameRecord) Joinable() bool {
	switch g.Status {
	case GameStatusWaiting:
		return true
	case GameStatusInProgress:
		return g.Config.AllowLateJoin
	default:
		return false
	}
}

// Membership is one user's persisted participation in a game.
// There is exactly one row per (game, user) pair.
type Membership struct {
	GameCode  GameCode  `json:"codigo"`
	UserID    UserID    `json:"user_id"`
	Username  string    `json:"username"`
	Team      string    `json:"equipo"`
	Ready     bool      `json:"listo"`
	IsCreator bool      `json:"esCreador"`
	JoinedAt  time.Time `json:"unidoEn"`
}

// GameSnapshot is the wire representation of a game sent to clients,
// combining the persisted record with its current roster.
type GameSnapshot struct {
	Code      GameCode      `json:"codigo"`
	Config    GameConfig    `json:"configuracion"`
	Status    GameStatus    `json:"estado"`
	CreatedAt time.Time     `json:"creadaEn"`
	Players   []*Membership `json:"jugadores"`
}

// GameSummary is one entry in the available-games list, with the live
// connected count joined in from room membership rather than storage.
type GameSummary struct {
	Code       GameCode   `json:"codigo"`
	Name       string     `json:"nombrePartida"`
	Status     GameStatus `json:"estado"`
	MaxPlayers int        `json:"maxJugadores"`
	Players    int        `json:"jugadores"`
	Connected  int        `json:"conectados"`
	CreatedAt  time.Time  `json:"creadaEn"`
}
