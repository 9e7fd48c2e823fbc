package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/dice-duel-backend/internal/hub"
)

const qrSize = 256

// SpectatorURL is the link that opens code read-only.
func SpectatorURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/rooms/" + code + "?spectate=1"
}

func SpectateLink(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := d.Hub.GetRoom(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			URL string `json:"url"`
		}{URL: SpectatorURL(d.BaseURL, v.State.Code)})
	}
}

// SpectateQR renders the spectator link as a PNG QR code.
func SpectateQR(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := hub.NormalizeCode(chi.URLParam(r, "code"))
		if _, err := d.Hub.GetRoom(r.Context(), code); err != nil {
			writeError(w, d.Log, err)
			return
		}
		png, err := qrcode.Encode(SpectatorURL(d.BaseURL, code), qrcode.Medium, qrSize)
		if err != nil {
			d.Log.Error("render qr", zap.String("room", code), zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "failed to render qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(png)
	}
}
