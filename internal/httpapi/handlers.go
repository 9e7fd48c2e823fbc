package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/DoyleJ11/dice-duel-backend/internal/character"
	"github.com/DoyleJ11/dice-duel-backend/internal/engine"
	"github.com/DoyleJ11/dice-duel-backend/internal/hub"
)

const maxTeamSize = 4

type createRoomRequest struct {
	CharacterID string `json:"characterId"`
	Identity    string `json:"identity"`
	Name        string `json:"name,omitempty"`
	TeamSize    int    `json:"teamSize,omitempty"`
	Practice    bool   `json:"practice,omitempty"`
}

type joinRoomRequest struct {
	CharacterID string          `json:"characterId"`
	Identity    string          `json:"identity"`
	Team        engine.TeamSide `json:"team,omitempty"`
}

type joinRoomResponse struct {
	Role hub.Role    `json:"role"`
	Room engine.Room `json:"room"`
}

type viewerRequest struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

type identityRequest struct {
	Identity string `json:"identity"`
}

func CreateRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := decodeBody(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid body")
			return
		}
		if req.Identity == "" || req.CharacterID == "" {
			writeMessage(w, http.StatusBadRequest, "identity and characterId are required")
			return
		}
		if req.TeamSize == 0 || req.Practice {
			req.TeamSize = 1
		}
		if req.TeamSize < 1 || req.TeamSize > maxTeamSize {
			writeMessage(w, http.StatusBadRequest, "teamSize out of range")
			return
		}

		c, err := d.Characters.Get(r.Context(), req.CharacterID)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		create := hub.CreateRequest{
			Initiator: character.ToFighterState(req.Identity, c),
			Name:      req.Name,
			TeamSize:  req.TeamSize,
		}
		if req.Practice {
			dummy, err := d.Characters.Get(r.Context(), character.PracticeOpponentID)
			if err != nil {
				writeError(w, d.Log, err)
				return
			}
			npc := character.ToFighterState("npc-"+uuid.NewString(), dummy)
			create.Opponent = &npc
		}

		room, err := d.Hub.CreateRoom(r.Context(), create)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

func ListRooms(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := d.Hub.ListRooms(r.Context())
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func GetRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := d.Hub.GetRoom(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, v.State)
	}
}

// JoinRoom seats the caller or, when the room is full, lets them watch.
func JoinRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRoomRequest
		if err := decodeBody(r, &req); err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid body")
			return
		}
		if req.Identity == "" || req.CharacterID == "" {
			writeMessage(w, http.StatusBadRequest, "identity and characterId are required")
			return
		}
		switch req.Team {
		case "", engine.TeamA, engine.TeamB:
		default:
			writeMessage(w, http.StatusBadRequest, "unknown team")
			return
		}

		c, err := d.Characters.Get(r.Context(), req.CharacterID)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		res, err := d.Hub.JoinRoom(r.Context(), chi.URLParam(r, "code"), character.ToFighterState(req.Identity, c), req.Team)
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, joinRoomResponse{Role: res.Role, Room: res.Room})
	}
}

func AddViewer(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req viewerRequest
		if err := decodeBody(r, &req); err != nil || req.Identity == "" {
			writeMessage(w, http.StatusBadRequest, "identity is required")
			return
		}
		code := chi.URLParam(r, "code")
		err := d.Hub.JoinAsViewer(r.Context(), code, engine.Viewer{ID: req.Identity, DisplayName: req.DisplayName})
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		respondWithRoom(w, r, d, code)
	}
}

func RemoveViewer(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Hub.LeaveViewer(r.Context(), chi.URLParam(r, "code"), chi.URLParam(r, "id")); err != nil {
			writeError(w, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func StartBattle(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req identityRequest
		if err := decodeBody(r, &req); err != nil || req.Identity == "" {
			writeMessage(w, http.StatusBadRequest, "identity is required")
			return
		}
		code := chi.URLParam(r, "code")
		if err := d.Hub.StartBattle(r.Context(), code, req.Identity); err != nil {
			writeError(w, d.Log, err)
			return
		}
		respondWithRoom(w, r, d, code)
	}
}

// DeleteRoom removes the room for everyone. When ?identity= is given it must
// name the room's creator.
func DeleteRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if identity := r.URL.Query().Get("identity"); identity != "" {
			v, err := d.Hub.GetRoom(r.Context(), code)
			if err != nil {
				writeError(w, d.Log, err)
				return
			}
			if v.State.CreatorID != identity {
				writeMessage(w, http.StatusForbidden, "only the creator can delete the room")
				return
			}
		}
		if err := d.Hub.DeleteRoom(r.Context(), code); err != nil {
			writeError(w, d.Log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func BattleLog(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := d.Hub.GetRoom(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		entries := []engine.BattleLogEntry{}
		if v.State.Battle != nil && v.State.Battle.Log != nil {
			entries = v.State.Battle.Log
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func respondWithRoom(w http.ResponseWriter, r *http.Request, d Deps, code string) {
	v, err := d.Hub.GetRoom(r.Context(), code)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v.State)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
