package server

import (
	"context"
	"net/http"

	"cucina/internal/handlers"
	applog "cucina/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	mux.HandleFunc("/login", handlers.Login)
	mux.HandleFunc("/signup", handlers.Signup)
	mux.HandleFunc("/logout", handlers.Logout)
	mux.Handle("/app/preferences/update", handlers.RequireAuthentication(http.HandlerFunc(handlers.UpdatePreferences)))
	mux.Handle("/app/api/ingredients", handlers.RequireAuthentication(http.HandlerFunc(handlers.IngredientResource)))
	mux.Handle("/app/api/ingredients/", handlers.RequireAuthentication(http.HandlerFunc(handlers.IngredientResource)))
	mux.Handle("/app/api/recipes", handlers.RequireAuthentication(http.HandlerFunc(handlers.RecipeResource)))
	mux.Handle("/app/api/recipes/", handlers.RequireAuthentication(http.HandlerFunc(handlers.RecipeResource)))
	mux.Handle("/app/api/editor", handlers.RequireAuthentication(http.HandlerFunc(handlers.EditorResource)))
	mux.Handle("/app/api/editor/", handlers.RequireAuthentication(http.HandlerFunc(handlers.EditorResource)))
	mux.Handle("/app/api/balances", handlers.RequireAuthentication(http.HandlerFunc(handlers.Balances)))
	applog.Debug(context.Background(), "routes registered")
	return mux
}
