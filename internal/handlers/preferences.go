package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	applog "cucina/internal/log"
	"cucina/models"
)

type preferencesRequest struct {
	Currency string `json:"currency"`
}

type preferencesResponse struct {
	Currency string `json:"currency"`
}

// UpdatePreferences persists account preferences for the authenticated user.
func UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		applog.Debug(r.Context(), "preferences update with unsupported method", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, err := loadCurrentUser(r)
	if err != nil {
		applog.Error(r.Context(), "unable to load current user for preferences", "error", err)
		writeJSONError(w, http.StatusUnauthorized, "unable to load account")
		return
	}

	var payload preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid preferences payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(payload.Currency))
	if !models.ValidCurrency(currency) {
		applog.Debug(r.Context(), "received invalid currency selection", "value", payload.Currency)
		writeJSONError(w, http.StatusBadRequest, "invalid currency selection")
		return
	}

	if err := database.WithContext(r.Context()).Model(user).Update("currency", currency).Error; err != nil {
		applog.Error(r.Context(), "failed to persist user preferences", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}

	writeJSON(w, http.StatusOK, preferencesResponse{Currency: currency})
}
