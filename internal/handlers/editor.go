package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"cucina/internal/allocation"
	applog "cucina/internal/log"
	"cucina/models"
)

type editorOpenRequest struct {
	RecipeID uint `json:"recipe_id"`
}

type editorDraftUpdateRequest struct {
	Name     *string  `json:"name"`
	Emoji    *string  `json:"emoji"`
	Quantity *float64 `json:"quantity"`
}

type editorSaveRequest struct {
	Name          string  `json:"name"`
	Notes         string  `json:"notes"`
	Yield         float64 `json:"yield"`
	MarginPercent float64 `json:"margin_percent"`
}

type editorStateResponse struct {
	TargetRecipeID uint                   `json:"target_recipe_id"`
	Drafts         []allocation.DraftLine `json:"drafts"`
	Confirmed      []recipeLinePayload    `json:"confirmed"`
	Totals         allocation.CostSummary `json:"totals"`
	Balances       []allocation.Balance   `json:"balances"`
}

// EditorResource drives one recipe-editing session over HTTP. The session
// lives in the scs store under a single key, so each browser session has at
// most one active editor, mirroring the single-editor UI.
func EditorResource(w http.ResponseWriter, r *http.Request) {
	if database == nil || sessionManager == nil {
		applog.Debug(r.Context(), "editor request without dependencies")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "editor request without authenticated user")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/editor")
	path = strings.Trim(path, "/")
	segments := []string{}
	if path != "" {
		segments = strings.Split(path, "/")
	}

	switch {
	case len(segments) == 0 && r.Method == http.MethodGet:
		editorState(w, r)
	case len(segments) == 0 && r.Method == http.MethodDelete:
		editorDiscard(w, r)
	case len(segments) == 1 && segments[0] == "open" && r.Method == http.MethodPost:
		editorOpen(w, r)
	case len(segments) == 1 && segments[0] == "draft" && r.Method == http.MethodPost:
		editorAddDraft(w, r)
	case len(segments) == 1 && segments[0] == "save" && r.Method == http.MethodPost:
		editorSave(w, r, userID)
	case len(segments) == 2 && segments[0] == "draft":
		index, err := strconv.Atoi(segments[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodPut:
			editorUpdateDraft(w, r, index)
		case http.MethodDelete:
			editorCancelDraft(w, r, index)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(segments) == 3 && segments[0] == "draft" && segments[2] == "confirm" && r.Method == http.MethodPost:
		index, err := strconv.Atoi(segments[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		editorConfirmDraft(w, r, index)
	case len(segments) == 2 && segments[0] == "confirmed" && r.Method == http.MethodDelete:
		index, err := strconv.Atoi(segments[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		editorDeleteConfirmed(w, r, index)
	case len(segments) == 3 && segments[0] == "confirmed" && segments[2] == "edit" && r.Method == http.MethodPost:
		index, err := strconv.Atoi(segments[1])
		if err != nil {
			http.NotFound(w, r)
			return
		}
		editorEditConfirmed(w, r, index)
	default:
		http.NotFound(w, r)
	}
}

func editorOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload editorOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		applog.Debug(ctx, "invalid editor open payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	var existing []models.RecipeIngredient
	if payload.RecipeID != 0 {
		recipe, err := loadRecipe(ctx, payload.RecipeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				http.NotFound(w, r)
				return
			}
			applog.Error(ctx, "failed to load recipe for editing", "error", err, "id", payload.RecipeID)
			writeJSONError(w, http.StatusInternalServerError, "unable to open editor")
			return
		}
		existing = recipe.Ingredients
	}

	session := allocation.NewSession(payload.RecipeID, existing)
	if err := storeEditorSession(r, session); err != nil {
		applog.Error(ctx, "failed to store editor session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to open editor")
		return
	}

	respondEditorState(w, r, session)
}

func editorState(w http.ResponseWriter, r *http.Request) {
	session, ok := loadEditorSession(r)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no editing session is open")
		return
	}
	respondEditorState(w, r, session)
}

func editorDiscard(w http.ResponseWriter, r *http.Request) {
	sessionManager.Remove(r.Context(), sessionEditorKey)
	w.WriteHeader(http.StatusNoContent)
}

func editorAddDraft(w http.ResponseWriter, r *http.Request) {
	withEditorSession(w, r, func(session *allocation.Session) error {
		session.Add()
		return nil
	})
}

func editorUpdateDraft(w http.ResponseWriter, r *http.Request, index int) {
	var payload editorDraftUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid draft update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	withEditorSession(w, r, func(session *allocation.Session) error {
		if payload.Name != nil {
			catalog, err := loadCatalog(r.Context())
			if err != nil {
				return err
			}
			if err := session.UpdateName(index, *payload.Name, catalog); err != nil {
				return err
			}
		}
		if payload.Emoji != nil {
			if err := session.UpdateEmoji(index, *payload.Emoji); err != nil {
				return err
			}
		}
		if payload.Quantity != nil {
			if err := session.UpdateQuantity(index, *payload.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func editorConfirmDraft(w http.ResponseWriter, r *http.Request, index int) {
	withEditorSession(w, r, func(session *allocation.Session) error {
		return session.Confirm(index)
	})
}

func editorCancelDraft(w http.ResponseWriter, r *http.Request, index int) {
	withEditorSession(w, r, func(session *allocation.Session) error {
		return session.CancelDraftEdit(index)
	})
}

func editorDeleteConfirmed(w http.ResponseWriter, r *http.Request, index int) {
	withEditorSession(w, r, func(session *allocation.Session) error {
		return session.DeleteConfirmed(index)
	})
}

func editorEditConfirmed(w http.ResponseWriter, r *http.Request, index int) {
	withEditorSession(w, r, func(session *allocation.Session) error {
		return session.EditConfirmed(index)
	})
}

func editorSave(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	session, ok := loadEditorSession(r)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no editing session is open")
		return
	}

	var payload editorSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid editor save payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if payload.Yield < 0 || payload.MarginPercent < 0 || payload.MarginPercent >= 100 {
		writeJSONError(w, http.StatusBadRequest, "yield and margin must be within range")
		return
	}

	confirmed := session.Flatten()
	summary := allocation.Totals(confirmed, payload.Yield, payload.MarginPercent/100)

	var saved *models.Recipe
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if session.TargetRecipeID == 0 {
			recipe := models.Recipe{
				Name:           strings.TrimSpace(payload.Name),
				Notes:          payload.Notes,
				Yield:          payload.Yield,
				MarginPercent:  payload.MarginPercent,
				TotalCost:      summary.TotalCost,
				UsageCost:      summary.UsageCost,
				UnitCost:       summary.UnitCost,
				SuggestedPrice: summary.SuggestedPrice,
				OwnerID:        userID,
			}
			for _, line := range confirmed {
				recipe.Ingredients = append(recipe.Ingredients, models.RecipeIngredient{
					Name:            line.Name,
					Emoji:           line.Emoji,
					PackageQuantity: line.PackageQuantity,
					TotalValue:      line.TotalValue,
					Quantity:        line.Quantity,
				})
			}
			if err := tx.Create(&recipe).Error; err != nil {
				return err
			}
			saved = &recipe
			return nil
		}

		updates := map[string]any{
			"name":            strings.TrimSpace(payload.Name),
			"notes":           payload.Notes,
			"yield":           payload.Yield,
			"margin_percent":  payload.MarginPercent,
			"total_cost":      summary.TotalCost,
			"usage_cost":      summary.UsageCost,
			"unit_cost":       summary.UnitCost,
			"suggested_price": summary.SuggestedPrice,
		}
		if err := tx.Model(&models.Recipe{}).Where("id = ?", session.TargetRecipeID).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", session.TargetRecipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		for _, line := range confirmed {
			stored := models.RecipeIngredient{
				RecipeID:        session.TargetRecipeID,
				Name:            line.Name,
				Emoji:           line.Emoji,
				PackageQuantity: line.PackageQuantity,
				TotalValue:      line.TotalValue,
				Quantity:        line.Quantity,
			}
			if err := tx.Create(&stored).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to save edited recipe", "error", err, "id", session.TargetRecipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to save recipe")
		return
	}

	recipeID := session.TargetRecipeID
	if saved != nil {
		recipeID = saved.ID
		pushPackagesToStock(ctx, saved.Ingredients, userID)
	}

	sessionManager.Remove(ctx, sessionEditorKey)

	reloaded, err := loadRecipe(ctx, recipeID)
	if err != nil {
		applog.Error(ctx, "failed to reload saved recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(*reloaded))
}

// withEditorSession loads the stored session, applies op, and on success
// persists the mutated session and writes the fresh editor state. Field
// validation errors surface as 422 so the UI can pin them to the input.
func withEditorSession(w http.ResponseWriter, r *http.Request, op func(*allocation.Session) error) {
	session, ok := loadEditorSession(r)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no editing session is open")
		return
	}

	if err := op(session); err != nil {
		var validation *allocation.ValidationError
		if errors.As(err, &validation) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"field": validation.Field,
				"error": validation.Message,
			})
			return
		}
		applog.Debug(r.Context(), "editor operation rejected", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := storeEditorSession(r, session); err != nil {
		applog.Error(r.Context(), "failed to store editor session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to persist editor state")
		return
	}

	respondEditorState(w, r, session)
}

func respondEditorState(w http.ResponseWriter, r *http.Request, session *allocation.Session) {
	ctx := r.Context()
	engine, err := buildEngine(ctx, session.TargetRecipeID)
	if err != nil {
		applog.Error(ctx, "failed to build allocation engine", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to compute balances")
		return
	}

	yield := parseFloatQuery(r, "yield", 1)
	margin := parseFloatQuery(r, "margin_percent", 0) / 100

	state := editorStateResponse{
		TargetRecipeID: session.TargetRecipeID,
		Drafts:         session.Drafts,
		Confirmed:      make([]recipeLinePayload, 0, len(session.Confirmed)),
		Totals:         allocation.Totals(session.Confirmed, yield, margin),
	}
	for _, line := range session.Confirmed {
		state.Confirmed = append(state.Confirmed, recipeLinePayload{
			Name:            line.Name,
			Emoji:           line.Emoji,
			PackageQuantity: line.PackageQuantity,
			TotalValue:      line.TotalValue,
			Quantity:        line.Quantity,
		})
	}

	seen := make(map[string]struct{})
	for _, line := range append(append([]models.RecipeIngredient{}, session.Confirmed...), draftLines(session)...) {
		key := allocation.Normalize(line.Name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		state.Balances = append(state.Balances, engine.BalanceFor(line.Name, session.Confirmed))
	}

	writeJSON(w, http.StatusOK, state)
}

func draftLines(session *allocation.Session) []models.RecipeIngredient {
	lines := make([]models.RecipeIngredient, 0, len(session.Drafts))
	for _, draft := range session.Drafts {
		lines = append(lines, draft.Line)
	}
	return lines
}

func loadEditorSession(r *http.Request) (*allocation.Session, bool) {
	raw := sessionManager.GetString(r.Context(), sessionEditorKey)
	if raw == "" {
		return nil, false
	}
	var session allocation.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		applog.Error(r.Context(), "failed to decode stored editor session", "error", err)
		return nil, false
	}
	return &session, true
}

func storeEditorSession(r *http.Request, session *allocation.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionEditorKey, string(raw))
	return nil
}

// buildEngine snapshots the catalog and the ledger view excluding the recipe
// under edit, per the engine's contract.
func buildEngine(ctx context.Context, excludeRecipeID uint) (*allocation.Engine, error) {
	catalog, err := loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	query := database.WithContext(ctx).Model(&models.RecipeIngredient{})
	if excludeRecipeID != 0 {
		query = query.Where("recipe_id <> ?", excludeRecipeID)
	}
	var ledger []models.RecipeIngredient
	if err := query.Find(&ledger).Error; err != nil {
		return nil, err
	}

	return allocation.NewEngine(catalog, ledger), nil
}

func loadCatalog(ctx context.Context) (allocation.CatalogMap, error) {
	var ingredients []models.Ingredient
	if err := database.WithContext(ctx).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return allocation.NewCatalog(ingredients), nil
}

func parseFloatQuery(r *http.Request, key string, def float64) float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return parsed
}
