package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/character"
	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
	"github.com/DoyleJ11/dice-duel-backend/internal/hub"
	"github.com/DoyleJ11/dice-duel-backend/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps domain errors onto HTTP statuses. Anything unknown is treated
// as a transient backend failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, hub.ErrRoomNotFound), errors.Is(err, character.ErrCharacterNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrSlotUnavailable),
		errors.Is(err, engine.ErrRoomNotReady),
		errors.Is(err, engine.ErrStaleAction),
		errors.Is(err, engine.ErrBattleFinished),
		errors.Is(err, engine.ErrWrongTurn),
		errors.Is(err, store.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidFighter),
		errors.Is(err, engine.ErrInvalidTarget),
		errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		log.Error("request failed", zap.Error(err))
		writeMessage(w, status, "service unavailable")
		return
	}
	writeMessage(w, status, err.Error())
}
