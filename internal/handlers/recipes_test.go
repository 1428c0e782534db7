package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"cucina/models"
)

func withKitchenTestDatabase(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	original := database
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.StockItem{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	database = db
	return db, func() {
		database = original
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecipeCreateComputesCosts(t *testing.T) {
	db, cleanupDB := withKitchenTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	owner := models.User{Email: "owner@example.com", PasswordHash: "hash"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}

	payload := recipeRequest{
		Name:          "Brioche",
		Yield:         10,
		MarginPercent: 50,
		Ingredients: []recipeLinePayload{
			{Name: "Flour", PackageQuantity: 800, TotalValue: 10, Quantity: 200},
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/app/api/recipes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = authenticateRequest(t, sm, req, owner.ID)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created recipeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if !closeEnough(created.TotalCost, 10) {
		t.Fatalf("total cost = %v, want 10", created.TotalCost)
	}
	// 200 used out of a 1000 package worth 10 costs 2.
	if !closeEnough(created.UsageCost, 2) {
		t.Fatalf("usage cost = %v, want 2", created.UsageCost)
	}
	if !closeEnough(created.UnitCost, 0.2) {
		t.Fatalf("unit cost = %v, want 0.2", created.UnitCost)
	}
	if !closeEnough(created.SuggestedPrice, 0.4) {
		t.Fatalf("suggested price = %v, want 0.4", created.SuggestedPrice)
	}
	if len(created.Ingredients) != 1 || created.Ingredients[0].PackageQuantity != 800 {
		t.Fatalf("expected stored line verbatim, got %+v", created.Ingredients)
	}
}

func TestRecipeCreatePushesStockOnce(t *testing.T) {
	db, cleanupDB := withKitchenTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	owner := models.User{Email: "owner@example.com", PasswordHash: "hash"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	if err := db.Create(&models.StockItem{Name: "Sugar", Quantity: 42, OwnerID: owner.ID}).Error; err != nil {
		t.Fatalf("failed to seed stock: %v", err)
	}

	payload := recipeRequest{
		Name: "Syrup",
		Ingredients: []recipeLinePayload{
			{Name: "Flour", PackageQuantity: 800, TotalValue: 10, Quantity: 200},
			{Name: "sugar", PackageQuantity: 300, TotalValue: 8, Quantity: 200},
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/app/api/recipes", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = authenticateRequest(t, sm, req, owner.ID)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var flourStock models.StockItem
	if err := db.Where("name = ?", "Flour").First(&flourStock).Error; err != nil {
		t.Fatalf("expected flour pushed to stock: %v", err)
	}
	// Stock records the full package, remaining plus consumed.
	if flourStock.Quantity != 1000 {
		t.Fatalf("flour stock quantity = %v, want 1000", flourStock.Quantity)
	}

	// Existing entries are left alone regardless of name casing.
	var sugarStock models.StockItem
	if err := db.Where("lower(name) = ?", "sugar").First(&sugarStock).Error; err != nil {
		t.Fatalf("failed to load sugar stock: %v", err)
	}
	if sugarStock.Quantity != 42 {
		t.Fatalf("sugar stock quantity = %v, want untouched 42", sugarStock.Quantity)
	}
	var count int64
	if err := db.Model(&models.StockItem{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count stock items: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 stock items, got %d", count)
	}
}

func TestRecipeUpdateReplacesLines(t *testing.T) {
	db, cleanupDB := withKitchenTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	owner := models.User{Email: "owner@example.com", PasswordHash: "hash"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	recipe := models.Recipe{
		Name:    "Old",
		Yield:   4,
		OwnerID: owner.ID,
		Ingredients: []models.RecipeIngredient{
			{Name: "Flour", PackageQuantity: 800, TotalValue: 10, Quantity: 200},
		},
	}
	if err := db.Create(&recipe).Error; err != nil {
		t.Fatalf("failed to seed recipe: %v", err)
	}

	payload := recipeRequest{
		Name:  "New",
		Yield: 8,
		Ingredients: []recipeLinePayload{
			{Name: "Sugar", PackageQuantity: 400, TotalValue: 8, Quantity: 100},
			{Name: "Butter", PackageQuantity: 150, TotalValue: 12, Quantity: 50},
		},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/app/api/recipes/%d", recipe.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = authenticateRequest(t, sm, req, owner.ID)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated recipeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode update response: %v", err)
	}
	if updated.Name != "New" || updated.Yield != 8 {
		t.Fatalf("unexpected recipe fields: %+v", updated)
	}
	if len(updated.Ingredients) != 2 {
		t.Fatalf("expected replaced lines, got %+v", updated.Ingredients)
	}

	var lines []models.RecipeIngredient
	if err := db.Where("recipe_id = ?", recipe.ID).Find(&lines).Error; err != nil {
		t.Fatalf("failed to load lines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 stored lines, got %d", len(lines))
	}
	for _, line := range lines {
		if line.Name == "Flour" {
			t.Fatal("expected old line to be removed")
		}
	}
}

func TestRecipeDuplicate(t *testing.T) {
	db, cleanupDB := withKitchenTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	owner := models.User{Email: "owner@example.com", PasswordHash: "hash"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	recipe := models.Recipe{
		Name:    "Brioche",
		OwnerID: owner.ID,
		Ingredients: []models.RecipeIngredient{
			{Name: "Flour", PackageQuantity: 800, TotalValue: 10, Quantity: 200},
		},
	}
	if err := db.Create(&recipe).Error; err != nil {
		t.Fatalf("failed to seed recipe: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/duplicate", recipe.ID), nil)
	req = authenticateRequest(t, sm, req, owner.ID)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for duplicate, got %d: %s", w.Code, w.Body.String())
	}

	var clone recipeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &clone); err != nil {
		t.Fatalf("failed to decode duplicate response: %v", err)
	}
	if clone.Name != "Brioche (Copy)" {
		t.Fatalf("clone name = %q, want %q", clone.Name, "Brioche (Copy)")
	}
	if len(clone.Ingredients) != 1 || clone.Ingredients[0].Name != "Flour" {
		t.Fatalf("expected copied lines, got %+v", clone.Ingredients)
	}

	// Duplicating again picks the next free suffix.
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/app/api/recipes/%d/duplicate", recipe.ID), nil)
	req = authenticateRequest(t, sm, req, owner.ID)
	w = httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201 for second duplicate, got %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &clone); err != nil {
		t.Fatalf("failed to decode second duplicate response: %v", err)
	}
	if clone.Name != "Brioche (Copy 2)" {
		t.Fatalf("second clone name = %q, want %q", clone.Name, "Brioche (Copy 2)")
	}
}

func TestRecipeDeleteRemovesLines(t *testing.T) {
	db, cleanupDB := withKitchenTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	owner := models.User{Email: "owner@example.com", PasswordHash: "hash"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}
	recipe := models.Recipe{
		Name:    "Short Lived",
		OwnerID: owner.ID,
		Ingredients: []models.RecipeIngredient{
			{Name: "Flour", PackageQuantity: 800, TotalValue: 10, Quantity: 200},
		},
	}
	if err := db.Create(&recipe).Error; err != nil {
		t.Fatalf("failed to seed recipe: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/app/api/recipes/%d", recipe.ID), nil)
	req = authenticateRequest(t, sm, req, owner.ID)
	w := httptest.NewRecorder()
	RecipeResource(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for delete, got %d", w.Code)
	}

	var count int64
	if err := db.Model(&models.Recipe{}).Where("id = ?", recipe.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count recipes: %v", err)
	}
	if count != 0 {
		t.Fatal("expected recipe to be soft deleted")
	}
	if err := db.Model(&models.RecipeIngredient{}).Where("recipe_id = ?", recipe.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count lines: %v", err)
	}
	if count != 0 {
		t.Fatal("expected recipe lines to be removed with the recipe")
	}
}

func TestRecipeValidation(t *testing.T) {
	db, cleanupDB := withKitchenTestDatabase(t)
	t.Cleanup(cleanupDB)
	sm, cleanupSession := withTestSessionManager(t)
	t.Cleanup(cleanupSession)

	owner := models.User{Email: "owner@example.com", PasswordHash: "hash"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("failed to create owner: %v", err)
	}

	cases := []recipeRequest{
		{Name: " "},
		{Name: "Bad Yield", Yield: -1},
		{Name: "Bad Margin", MarginPercent: 100},
		{Name: "Bad Line", Ingredients: []recipeLinePayload{{Name: ""}}},
		{Name: "Bad Quantity", Ingredients: []recipeLinePayload{{Name: "Flour", Quantity: -5}}},
	}
	for _, payload := range cases {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/app/api/recipes", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = authenticateRequest(t, sm, req, owner.ID)
		w := httptest.NewRecorder()
		RecipeResource(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for %+v, got %d", payload, w.Code)
		}
	}
}

func TestNextCopiedRecipeName(t *testing.T) {
	t.Parallel()

	existing := []models.Recipe{
		{Name: "Brioche"},
		{Name: "brioche (copy)"},
	}
	if got := nextCopiedRecipeName(existing, "Brioche"); got != "Brioche (Copy 2)" {
		t.Fatalf("nextCopiedRecipeName = %q, want %q", got, "Brioche (Copy 2)")
	}
	if got := nextCopiedRecipeName(nil, "  "); got != "Untitled Recipe (Copy)" {
		t.Fatalf("nextCopiedRecipeName for blank base = %q", got)
	}
}
