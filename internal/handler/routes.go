package handler

import (
	"docctl-server/internal/domain"
	"docctl-server/internal/middleware"

	"github.com/gorilla/mux"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth     *AuthHandler
	User     *UserHandler
	Form     *FormHandler
	Claim    *ClaimHandler
	Bulletin *BulletinHandler
	Feedback *FeedbackHandler
	Supplier *SupplierHandler
	Purchase *PurchaseHandler
}

// RegisterRoutes mounts the /api/v1 surface on api. Reading is open to any
// signed-in user; issuing forms, storing documents and administration need
// the manager role.
func RegisterRoutes(api *mux.Router, h Handlers, jwtSecret string) {
	api.HandleFunc("/auth/login", h.Auth.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", h.Auth.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/logout", h.Auth.Logout).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(jwtSecret))

	// Routes registered before the manager subrouter win over its
	// parameterised paths.
	protected.HandleFunc("/users/me", h.User.GetMe).Methods("GET", "OPTIONS")
	protected.HandleFunc("/users/me", h.User.UpdateMe).Methods("PUT", "OPTIONS")

	manager := protected.PathPrefix("").Subrouter()
	manager.Use(middleware.RequireRole(domain.RoleManager))

	manager.HandleFunc("/users", h.User.List).Methods("GET", "OPTIONS")
	manager.HandleFunc("/users", h.User.Create).Methods("POST", "OPTIONS")
	manager.HandleFunc("/users/{id}", h.User.Edit).Methods("PUT", "OPTIONS")
	manager.HandleFunc("/users/{id}/reset-password", h.User.ResetPassword).Methods("POST", "OPTIONS")

	protected.HandleFunc("/forms", h.Form.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/forms/query", h.Form.Query).Methods("POST", "OPTIONS")
	protected.HandleFunc("/forms/query", h.Form.ClearQuery).Methods("DELETE", "OPTIONS")
	manager.HandleFunc("/forms/prepare", h.Form.Prepare).Methods("GET", "OPTIONS")
	manager.HandleFunc("/forms", h.Form.Issue).Methods("POST", "OPTIONS")
	protected.HandleFunc("/forms/{docNo}/versions", h.Form.Versions).Methods("GET", "OPTIONS")
	protected.HandleFunc("/forms/{docNo}/{docVer}", h.Form.Get).Methods("GET", "OPTIONS")
	manager.HandleFunc("/forms/{docNo}/{docVer}", h.Form.Edit).Methods("PUT", "OPTIONS")
	manager.HandleFunc("/forms/{docNo}/{docVer}", h.Form.Delete).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/forms/{docNo}/{docVer}/history", h.Form.History).Methods("GET", "OPTIONS")

	protected.HandleFunc("/claims", h.Claim.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/claims", h.Claim.Claim).Methods("POST", "OPTIONS")
	protected.HandleFunc("/claims/query", h.Claim.Query).Methods("POST", "OPTIONS")
	protected.HandleFunc("/claims/query", h.Claim.ClearQuery).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/claims/next-number", h.Claim.NextNumber).Methods("GET", "OPTIONS")
	manager.HandleFunc("/claims/store", h.Claim.Store).Methods("POST", "OPTIONS")
	protected.HandleFunc("/claims/{idNo}", h.Claim.Get).Methods("GET", "OPTIONS")
	manager.HandleFunc("/claims/{idNo}", h.Claim.Edit).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/claims/{idNo}/cancel", h.Claim.Cancel).Methods("POST", "OPTIONS")
	manager.HandleFunc("/claims/{idNo}/stock-in", h.Claim.StockIn).Methods("POST", "OPTIONS")

	protected.HandleFunc("/bulletin", h.Bulletin.Get).Methods("GET", "OPTIONS")
	manager.HandleFunc("/bulletin", h.Bulletin.Update).Methods("PUT", "OPTIONS")

	// Feedback roles are checked by the service: claimants work on their own
	// tickets and DELETE /feedback/{id} would shadow the query route.
	protected.HandleFunc("/feedback", h.Feedback.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/feedback", h.Feedback.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/feedback/query", h.Feedback.Query).Methods("POST", "OPTIONS")
	protected.HandleFunc("/feedback/query", h.Feedback.ClearQuery).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/feedback/{id}", h.Feedback.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/feedback/{id}", h.Feedback.Edit).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/feedback/{id}", h.Feedback.Delete).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/feedback/{id}/responses", h.Feedback.Reply).Methods("POST", "OPTIONS")

	protected.HandleFunc("/product-classes", h.Supplier.ListClasses).Methods("GET", "OPTIONS")
	protected.HandleFunc("/product-classes/query", h.Supplier.QueryClasses).Methods("POST", "OPTIONS")
	protected.HandleFunc("/product-classes/query", h.Supplier.ClearQuery(domain.PageProductClasses)).Methods("DELETE", "OPTIONS")
	manager.HandleFunc("/product-classes", h.Supplier.CreateClass).Methods("POST", "OPTIONS")
	manager.HandleFunc("/product-classes/{code}", h.Supplier.EditClass).Methods("PUT", "OPTIONS")

	protected.HandleFunc("/suppliers", h.Supplier.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/suppliers/query", h.Supplier.Query).Methods("POST", "OPTIONS")
	protected.HandleFunc("/suppliers/query", h.Supplier.ClearQuery(domain.PageSuppliers)).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/suppliers/{name}/{class}", h.Supplier.Get).Methods("GET", "OPTIONS")
	manager.HandleFunc("/suppliers/{name}/{class}", h.Supplier.Edit).Methods("PUT", "OPTIONS")

	protected.HandleFunc("/supplier-assessments", h.Supplier.ListAssessments).Methods("GET", "OPTIONS")
	protected.HandleFunc("/supplier-assessments/query", h.Supplier.QueryAssessments).Methods("POST", "OPTIONS")
	protected.HandleFunc("/supplier-assessments/query", h.Supplier.ClearQuery(domain.PageSupplierAssess)).Methods("DELETE", "OPTIONS")
	manager.HandleFunc("/supplier-assessments", h.Supplier.Assess).Methods("POST", "OPTIONS")

	protected.HandleFunc("/supplier-reassessments", h.Supplier.ListReassessments).Methods("GET", "OPTIONS")
	protected.HandleFunc("/supplier-reassessments/query", h.Supplier.QueryReassessments).Methods("POST", "OPTIONS")
	protected.HandleFunc("/supplier-reassessments/query", h.Supplier.ClearQuery(domain.PageReassessments)).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/supplier-reassessments/preview", h.Supplier.PreviewReassessment).Methods("POST", "OPTIONS")
	manager.HandleFunc("/supplier-reassessments", h.Supplier.Reassess).Methods("POST", "OPTIONS")

	protected.HandleFunc("/purchases", h.Purchase.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/purchases", h.Purchase.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/purchases/query", h.Purchase.Query).Methods("POST", "OPTIONS")
	protected.HandleFunc("/purchases/query", h.Purchase.ClearQuery).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/purchases/{requestNo}", h.Purchase.Get).Methods("GET", "OPTIONS")
	protected.HandleFunc("/purchases/{requestNo}", h.Purchase.Edit).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/purchases/{requestNo}", h.Purchase.Delete).Methods("DELETE", "OPTIONS")
	manager.HandleFunc("/purchases/{requestNo}/acceptance", h.Purchase.Accept).Methods("POST", "OPTIONS")
	manager.HandleFunc("/purchases/{requestNo}/return", h.Purchase.Return).Methods("POST", "OPTIONS")
	manager.HandleFunc("/purchases/{requestNo}/evaluation", h.Purchase.Evaluate).Methods("POST", "OPTIONS")
}
