package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spygrid/codenames-backend/internal/engine"
	"github.com/spygrid/codenames-backend/internal/types"
)

var errGameNotFound = errors.New("game not found")

// statusFor maps command errors onto HTTP statuses: 400 for malformed
// input, 403 for role/turn violations, 404 for unknown sessions or
// players, 409 for state conflicts.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		return http.StatusBadRequest, "InvalidInput"
	case errors.Is(err, engine.ErrInvalidIndex):
		return http.StatusBadRequest, "InvalidIndex"
	case errors.Is(err, engine.ErrNotYourTurn):
		return http.StatusForbidden, "NotYourTurn"
	case errors.Is(err, engine.ErrRoleTaken):
		return http.StatusForbidden, "RoleTaken"
	case errors.Is(err, errGameNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, engine.ErrUnknownPlayer):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, engine.ErrTileAlreadyRevealed):
		return http.StatusConflict, "TileAlreadyRevealed"
	case errors.Is(err, engine.ErrSessionFull):
		return http.StatusConflict, "SessionFull"
	case errors.Is(err, engine.ErrNotReady):
		return http.StatusConflict, "NotReady"
	case errors.Is(err, engine.ErrNotActive):
		return http.StatusConflict, "NotActive"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, types.ServerMessage{
		Type:    "error",
		Code:    code,
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
