package middleware

import (
	"encoding/json"
	"net/http"

	hostAuth "github.com/MrEthical07/hostAuth"
)

// maxRefreshBody bounds the refresh request body.
const maxRefreshBody = 64 << 10

// RefreshPair is the refresh request and response body.
type RefreshPair struct {
	JWT     string `json:"jwt"`
	Refresh string `json:"refresh"`
}

// RefreshHandler answers a POSTed RefreshPair with a re-signed token and the
// same refresh value.
func RefreshHandler(engine *hostAuth.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if engine == nil {
			writeError(w, hostAuth.ErrEngineNotReady)
			return
		}

		var in RefreshPair
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRefreshBody)).Decode(&in); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		token, refresh, err := engine.Refresh(bindContext(r), in.JWT, in.Refresh)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(RefreshPair{JWT: token, Refresh: refresh})
	})
}
