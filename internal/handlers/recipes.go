package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"cucina/internal/allocation"
	applog "cucina/internal/log"
	"cucina/models"
)

type recipeLinePayload struct {
	Name            string  `json:"name"`
	Emoji           string  `json:"emoji"`
	PackageQuantity float64 `json:"package_quantity"`
	TotalValue      float64 `json:"total_value"`
	Quantity        float64 `json:"quantity"`
}

type recipeRequest struct {
	Name          string              `json:"name"`
	Notes         string              `json:"notes"`
	Yield         float64             `json:"yield"`
	MarginPercent float64             `json:"margin_percent"`
	Ingredients   []recipeLinePayload `json:"ingredients"`
}

type recipeResponse struct {
	ID              uint                `json:"id"`
	Name            string              `json:"name"`
	Notes           string              `json:"notes"`
	Yield           float64             `json:"yield"`
	MarginPercent   float64             `json:"margin_percent"`
	Ingredients     []recipeLinePayload `json:"ingredients"`
	TotalCost       float64             `json:"total_cost"`
	UsageCost       float64             `json:"usage_cost"`
	UnitCost        float64             `json:"unit_cost"`
	SuggestedPrice  float64             `json:"suggested_price"`
	SuggestedProfit float64             `json:"suggested_profit"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// RecipeResource handles CRUD interactions for recipes. Saving a recipe
// recomputes every derived cost figure from its ingredient lines and stores
// the lines verbatim; the first save also pushes package quantities into the
// warehouse stock, one way.
func RecipeResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "recipe request without database")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		applog.Debug(r.Context(), "recipe request without authenticated user")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/app/api/recipes")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listRecipes(w, r)
		case http.MethodPost:
			createRecipe(w, r, userID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe identifier", "identifier", segments[0], "error", err)
		http.NotFound(w, r)
		return
	}
	recipeID := uint(idValue)

	if len(segments) == 2 && segments[1] == "duplicate" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		duplicateRecipe(w, r, recipeID, userID)
		return
	}
	if len(segments) > 1 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showRecipe(w, r, recipeID)
	case http.MethodPut:
		updateRecipe(w, r, recipeID)
	case http.MethodDelete:
		deleteRecipe(w, r, recipeID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Recipe

	if err := database.WithContext(ctx).Preload("Ingredients").Order("name asc").Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list recipes", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipes")
		return
	}

	responses := make([]recipeResponse, 0, len(results))
	for _, recipe := range results {
		responses = append(responses, projectRecipe(recipe))
	}

	writeJSON(w, http.StatusOK, responses)
}

func showRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	recipe, err := loadRecipe(r.Context(), recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(r.Context(), "failed to load recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}
	writeJSON(w, http.StatusOK, projectRecipe(*recipe))
}

func createRecipe(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()
	var payload recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateRecipePayload(payload); err != nil {
		applog.Debug(ctx, "recipe validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := linesFromPayload(0, payload.Ingredients)
	summary := allocation.Totals(lines, payload.Yield, payload.MarginPercent/100)

	recipe := models.Recipe{
		Name:           strings.TrimSpace(payload.Name),
		Notes:          payload.Notes,
		Yield:          payload.Yield,
		MarginPercent:  payload.MarginPercent,
		Ingredients:    lines,
		TotalCost:      summary.TotalCost,
		UsageCost:      summary.UsageCost,
		UnitCost:       summary.UnitCost,
		SuggestedPrice: summary.SuggestedPrice,
		OwnerID:        userID,
	}

	if err := database.WithContext(ctx).Create(&recipe).Error; err != nil {
		applog.Error(ctx, "failed to create recipe", "error", err)
		writeJSONError(w, http.StatusBadRequest, "unable to create recipe")
		return
	}

	pushPackagesToStock(ctx, recipe.Ingredients, userID)

	reloaded, err := loadRecipe(ctx, recipe.ID)
	if err != nil {
		applog.Error(ctx, "failed to reload created recipe", "error", err, "id", recipe.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	writeJSON(w, http.StatusCreated, projectRecipe(*reloaded))
}

func updateRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()
	existing, err := loadRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe for update", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	var payload recipeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid recipe update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := validateRecipePayload(payload); err != nil {
		applog.Debug(ctx, "recipe update validation failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines := linesFromPayload(recipeID, payload.Ingredients)
	summary := allocation.Totals(lines, payload.Yield, payload.MarginPercent/100)

	err = database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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
		if err := tx.Model(existing).Updates(updates).Error; err != nil {
			return fmt.Errorf("update recipe: %w", err)
		}
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return fmt.Errorf("clear recipe lines: %w", err)
		}
		for i := range lines {
			if err := tx.Create(&lines[i]).Error; err != nil {
				return fmt.Errorf("store recipe line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to update recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to update recipe")
		return
	}

	reloaded, err := loadRecipe(ctx, recipeID)
	if err != nil {
		applog.Error(ctx, "failed to reload updated recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	writeJSON(w, http.StatusOK, projectRecipe(*reloaded))
}

func deleteRecipe(w http.ResponseWriter, r *http.Request, recipeID uint) {
	ctx := r.Context()
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Recipe{}, recipeID).Error
	})
	if err != nil {
		applog.Error(ctx, "failed to delete recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to delete recipe")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func duplicateRecipe(w http.ResponseWriter, r *http.Request, recipeID, userID uint) {
	ctx := r.Context()
	source, err := loadRecipe(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.NotFound(w, r)
			return
		}
		applog.Error(ctx, "failed to load recipe for duplication", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	var all []models.Recipe
	if err := database.WithContext(ctx).Find(&all).Error; err != nil {
		applog.Error(ctx, "failed to list recipes for naming", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to duplicate recipe")
		return
	}

	clone := models.Recipe{
		Name:           nextCopiedRecipeName(all, source.Name),
		Notes:          source.Notes,
		Yield:          source.Yield,
		MarginPercent:  source.MarginPercent,
		TotalCost:      source.TotalCost,
		UsageCost:      source.UsageCost,
		UnitCost:       source.UnitCost,
		SuggestedPrice: source.SuggestedPrice,
		OwnerID:        userID,
	}
	for _, line := range source.Ingredients {
		clone.Ingredients = append(clone.Ingredients, models.RecipeIngredient{
			Name:            line.Name,
			Emoji:           line.Emoji,
			PackageQuantity: line.PackageQuantity,
			TotalValue:      line.TotalValue,
			Quantity:        line.Quantity,
		})
	}

	if err := database.WithContext(ctx).Create(&clone).Error; err != nil {
		applog.Error(ctx, "failed to duplicate recipe", "error", err, "id", recipeID)
		writeJSONError(w, http.StatusInternalServerError, "unable to duplicate recipe")
		return
	}

	reloaded, err := loadRecipe(ctx, clone.ID)
	if err != nil {
		applog.Error(ctx, "failed to reload duplicated recipe", "error", err, "id", clone.ID)
		writeJSONError(w, http.StatusInternalServerError, "unable to load recipe")
		return
	}

	writeJSON(w, http.StatusCreated, projectRecipe(*reloaded))
}

func loadRecipe(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := database.WithContext(ctx).Preload("Ingredients").First(&recipe, recipeID).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func projectRecipe(recipe models.Recipe) recipeResponse {
	summary := allocation.Totals(recipe.Ingredients, recipe.Yield, recipe.MarginPercent/100)
	response := recipeResponse{
		ID:              recipe.ID,
		Name:            strings.TrimSpace(recipe.Name),
		Notes:           recipe.Notes,
		Yield:           recipe.Yield,
		MarginPercent:   recipe.MarginPercent,
		TotalCost:       summary.TotalCost,
		UsageCost:       summary.UsageCost,
		UnitCost:        summary.UnitCost,
		SuggestedPrice:  summary.SuggestedPrice,
		SuggestedProfit: summary.SuggestedProfit,
		CreatedAt:       recipe.CreatedAt,
		UpdatedAt:       recipe.UpdatedAt,
	}
	for _, line := range recipe.Ingredients {
		response.Ingredients = append(response.Ingredients, recipeLinePayload{
			Name:            line.Name,
			Emoji:           line.Emoji,
			PackageQuantity: line.PackageQuantity,
			TotalValue:      line.TotalValue,
			Quantity:        line.Quantity,
		})
	}
	return response
}

func linesFromPayload(recipeID uint, payloads []recipeLinePayload) []models.RecipeIngredient {
	lines := make([]models.RecipeIngredient, 0, len(payloads))
	for _, payload := range payloads {
		lines = append(lines, models.RecipeIngredient{
			RecipeID:        recipeID,
			Name:            payload.Name,
			Emoji:           payload.Emoji,
			PackageQuantity: payload.PackageQuantity,
			TotalValue:      payload.TotalValue,
			Quantity:        payload.Quantity,
		})
	}
	return lines
}

func validateRecipePayload(payload recipeRequest) error {
	if strings.TrimSpace(payload.Name) == "" {
		return errors.New("name is required")
	}
	if payload.Yield < 0 {
		return errors.New("yield must not be negative")
	}
	if payload.MarginPercent < 0 || payload.MarginPercent >= 100 {
		return errors.New("margin_percent must be between 0 and 99")
	}
	for _, line := range payload.Ingredients {
		if strings.TrimSpace(line.Name) == "" {
			return errors.New("every ingredient line needs a name")
		}
		if line.Quantity < 0 {
			return errors.New("ingredient quantity must not be negative")
		}
	}
	return nil
}

// pushPackagesToStock notifies the warehouse about packages consumed by a
// newly created recipe. Strictly one-way: existing stock entries are left
// alone, and failures only log since the recipe save already succeeded.
func pushPackagesToStock(ctx context.Context, lines []models.RecipeIngredient, userID uint) {
	for _, line := range lines {
		name := strings.TrimSpace(line.Name)
		if name == "" {
			continue
		}

		var count int64
		if err := database.WithContext(ctx).Model(&models.StockItem{}).
			Where("lower(name) = ?", strings.ToLower(name)).Count(&count).Error; err != nil {
			applog.Error(ctx, "failed to check stock item", "error", err, "name", name)
			continue
		}
		if count > 0 {
			continue
		}

		item := models.StockItem{
			Name:     name,
			Emoji:    line.Emoji,
			Quantity: line.PackageQuantity + line.Quantity,
			OwnerID:  userID,
		}
		if err := database.WithContext(ctx).Create(&item).Error; err != nil {
			applog.Error(ctx, "failed to push stock item", "error", err, "name", name)
		}
	}
}

// nextCopiedRecipeName generates a non-conflicting name when duplicating a
// recipe, matching case-insensitively against every existing recipe name.
func nextCopiedRecipeName(existing []models.Recipe, base string) string {
	baseTrim := strings.TrimSpace(base)
	if baseTrim == "" {
		baseTrim = "Untitled Recipe"
	}

	used := make(map[string]struct{}, len(existing))
	for _, recipe := range existing {
		name := strings.TrimSpace(recipe.Name)
		if name == "" {
			continue
		}
		used[strings.ToLower(name)] = struct{}{}
	}

	candidate := fmt.Sprintf("%s (Copy)", baseTrim)
	if _, ok := used[strings.ToLower(candidate)]; !ok {
		return candidate
	}

	for i := 2; ; i++ {
		candidate = fmt.Sprintf("%s (Copy %d)", baseTrim, i)
		if _, ok := used[strings.ToLower(candidate)]; !ok {
			return candidate
		}
	}
}
