package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "opsgraph_flash"

// Flash is a one-shot message carried between requests in a cookie.
type Flash struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

func setFlash(w http.ResponseWriter, message, level string) {
	raw, err := json.Marshal(Flash{Message: message, Level: level})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.URLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
	})
}

// popFlash reads and clears the flash cookie.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	raw, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}
