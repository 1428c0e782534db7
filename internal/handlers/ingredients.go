package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"cucina/internal/allocation"
	applog "cucina/internal/log"
	"cucina/models"
)

type ingredientRequest struct {
	Name            string  `json:"name"`
	Emoji           string  `json:"emoji"`
	PackageQuantity float64 `json:"package_quantity"`
	PackagePrice    float64 `json:"package_price"`
	Unit            string  `json:"unit"`
	Notes           string  `json:"notes"`
}

type ingredientResponse struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Emoji           string    `json:"emoji"`
	PackageQuantity float64   `json:"package_quantity"`
	PackagePrice    float64   `json:"package_price"`
	Unit            string    `json:"unit"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IngredientResource handles CRUD interactions for catalog ingredients.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "ingredient request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "ingredient request without authenticated user")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/ingredients")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r)
		case http.MethodPost:
			createIngredient(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", path, "error", err)
		http.NotFound(w, r)
		return
	}
	ingredientID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showIngredient(w, r, ingredientID)
	case http.MethodPut:
		updateIngredient(w, r, ingredientID)
	case http.MethodDelete:
		deleteIngredient(w, r, ingredientID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Ingredient

	if err := database.WithContext(ctx).Order("name asc").Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredients")
		return
	}

	responses := make([]ingredientResponse, 0, len(results))
	for _, ingredient := range results {
		responses = append(responses, projectIngredient(ingredient))
	}

	writeJSON(w, http.StatusOK, responses)
}

func showIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	var ingredient models.Ingredient
	if err := database.WithContext(ctx).First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	writeJSON(w, http.StatusOK, projectIngredient(ingredient))
}

func createIngredient(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var payload ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateIngredientPayload(payload); err != nil {
		applog.Debug(ctx, "ingredient validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if taken, err := ingredientNameTaken(r, payload.Name, 0); err != nil {
		applog.Error(ctx, "failed to check ingredient name", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to create ingredient")
		return
	} else if taken {
		writeJSONError(w, http.StatusConflict, "an ingredient with that name already exists")
		return
	}

	ingredient := models.Ingredient{
		Name:            strings.TrimSpace(payload.Name),
		Emoji:           payload.Emoji,
		PackageQuantity: payload.PackageQuantity,
		PackagePrice:    payload.PackagePrice,
		Unit:            strings.TrimSpace(payload.Unit),
		Notes:           payload.Notes,
		OwnerID:         userID,
	}

	if err := database.WithContext(ctx).Create(&ingredient).Error; err != nil {
		applog.Error(ctx, "failed to create ingredient", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create ingredient")
		return
	}

	writeJSON(w, http.StatusCreated, projectIngredient(ingredient))
}

func updateIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	var existing models.Ingredient
	if err := database.WithContext(ctx).First(&existing, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load ingredient for update", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	var payload ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid ingredient update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateIngredientPayload(payload); err != nil {
		applog.Debug(ctx, "ingredient update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if taken, err := ingredientNameTaken(r, payload.Name, ingredientID); err != nil {
		applog.Error(ctx, "failed to check ingredient name", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to update ingredient")
		return
	} else if taken {
		writeJSONError(w, http.StatusConflict, "an ingredient with that name already exists")
		return
	}

	updates := map[string]any{
		"name":             strings.TrimSpace(payload.Name),
		"emoji":            payload.Emoji,
		"package_quantity": payload.PackageQuantity,
		"package_price":    payload.PackagePrice,
		"unit":             strings.TrimSpace(payload.Unit),
		"notes":            payload.Notes,
	}

	if err := database.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		applog.Error(ctx, "failed to update ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusBadRequest, "unable to update ingredient")
		return
	}

	if err := database.WithContext(ctx).First(&existing, ingredientID).Error; err != nil {
		applog.Error(ctx, "failed to reload updated ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load ingredient")
		return
	}

	writeJSON(w, http.StatusOK, projectIngredient(existing))
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	if err := database.WithContext(ctx).Delete(&models.Ingredient{}, ingredientID).Error; err != nil {
		applog.Error(ctx, "failed to delete ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete ingredient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func projectIngredient(ingredient models.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:              ingredient.ID,
		Name:            strings.TrimSpace(ingredient.Name),
		Emoji:           ingredient.Emoji,
		PackageQuantity: ingredient.PackageQuantity,
		PackagePrice:    ingredient.PackagePrice,
		Unit:            ingredient.Unit,
		Notes:           ingredient.Notes,
		CreatedAt:       ingredient.CreatedAt,
		UpdatedAt:       ingredient.UpdatedAt,
	}
}

func validateIngredientPayload(payload ingredientRequest) error {
	if strings.TrimSpace(payload.Name) == "" {
		return errors.New("name is required")
	}
	if payload.PackageQuantity < 0 {
		return errors.New("package_quantity must not be negative")
	}
	if payload.PackagePrice < 0 {
		return errors.New("package_price must not be negative")
	}
	return nil
}

// ingredientNameTaken checks the catalog for a case-insensitive name clash,
// ignoring the record being updated. Matching goes through the same
// normalization the allocation engine uses.
func ingredientNameTaken(r *http.Request, name string, excludeID uint) (bool, error) {
	var existing []models.Ingredient
	if err := database.WithContext(r.Context()).Find(&existing).Error; err != nil {
		return false, err
	}
	for _, ingredient := range existing {
		if ingredient.ID == excludeID {
			continue
		}
		if allocation.SameName(ingredient.Name, name) {
			return true, nil
		}
	}
	return false, nil
}
