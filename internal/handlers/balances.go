package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"cucina/internal/allocation"
	applog "cucina/internal/log"
	"cucina/models"
)

// Balances reports ingredient availability: the whole catalog by default, or
// a single name via ?name=. The ledger view excludes ?recipe_id= (or the
// open editor's target), and an open editor session's confirmed lines count
// against the session-available figures.
func Balances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil {
		applog.Debug(r.Context(), "balance request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, ok := currentUserID(r); !ok {
		applog.Debug(r.Context(), "balance request without authenticated user")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()

	var confirmed []models.RecipeIngredient
	var excludeID uint
	if session, ok := loadEditorSession(r); ok {
		confirmed = session.Confirmed
		excludeID = session.TargetRecipeID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("recipe_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			excludeID = uint(parsed)
		}
	}

	engine, err := buildEngine(ctx, excludeID)
	if err != nil {
		applog.Error(ctx, "failed to build allocation engine", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to compute balances")
		return
	}

	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		writeJSON(w, http.StatusOK, engine.BalanceFor(name, confirmed))
		return
	}

	var ingredients []models.Ingredient
	if err := database.WithContext(ctx).Order("name asc").Find(&ingredients).Error; err != nil {
		applog.Error(ctx, "failed to list ingredients for balances", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to compute balances")
		return
	}

	balances := make([]allocation.Balance, 0, len(ingredients))
	for _, ingredient := range ingredients {
		balances = append(balances, engine.BalanceFor(ingredient.Name, confirmed))
	}

	writeJSON(w, http.StatusOK, balances)
}
