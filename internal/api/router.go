package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/nepremicnine/internal/activity"
	"github.com/erazemk/nepremicnine/internal/blob"
	"github.com/erazemk/nepremicnine/internal/market"
	"github.com/erazemk/nepremicnine/internal/model"
)

// Config holds the settings the handlers need.
type Config struct {
	JWTSecret      string
	TokenTTL       time.Duration
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, svc *market.Service, blobs blob.Store, cfg Config) http.Handler {
	mux := http.NewServeMux()

	feed := activity.NewDBSink(db)

	authHandler := &AuthHandler{DB: db, Sink: feed, JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenTTL}
	usersHandler := &UsersHandler{DB: db, Sink: feed}
	listingsHandler := &ListingsHandler{Market: svc, Blobs: blobs, MaxUploadBytes: cfg.MaxUploadBytes}
	offersHandler := &OffersHandler{Market: svc}
	verificationHandler := &VerificationHandler{Market: svc, Blobs: blobs, MaxUploadBytes: cfg.MaxUploadBytes}
	activityHandler := &ActivityHandler{Feed: feed}

	authMW := AuthMiddleware(cfg.JWTSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireOwner := RequireRole(model.RoleOwner)
	requireInvestor := RequireRole(model.RoleInvestor)
	requireOwnerOrAdmin := RequireRole(model.RoleOwner, model.RoleAdmin)

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/health", health(db))

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Listings: browsing is role-scoped, writes by owner, moderation by admin.
	mux.Handle("GET /api/listings", authMW(http.HandlerFunc(listingsHandler.List)))
	mux.Handle("POST /api/listings", authMW(requireOwner(http.HandlerFunc(listingsHandler.Create))))
	mux.Handle("GET /api/listings/review", authMW(requireAdmin(http.HandlerFunc(listingsHandler.ReviewQueue))))
	mux.Handle("GET /api/listings/{id}", authMW(http.HandlerFunc(listingsHandler.Get)))
	mux.Handle("PUT /api/listings/{id}", authMW(requireOwner(http.HandlerFunc(listingsHandler.Update))))
	mux.Handle("DELETE /api/listings/{id}", authMW(requireOwnerOrAdmin(http.HandlerFunc(listingsHandler.Delete))))
	mux.Handle("POST /api/listings/{id}/submit", authMW(requireOwner(listingsHandler.Submit())))
	mux.Handle("POST /api/listings/{id}/approve", authMW(requireAdmin(listingsHandler.Approve())))
	mux.Handle("POST /api/listings/{id}/reject", authMW(requireAdmin(http.HandlerFunc(listingsHandler.Reject))))
	mux.Handle("POST /api/listings/{id}/sold", authMW(requireOwnerOrAdmin(listingsHandler.Sold())))
	mux.Handle("PUT /api/listings/{id}/photos", authMW(requireOwner(http.HandlerFunc(listingsHandler.UploadPhoto))))
	mux.Handle("GET /api/listings/{id}/photos/{photoID}", authMW(http.HandlerFunc(listingsHandler.Photo)))
	mux.Handle("DELETE /api/listings/{id}/photos/{photoID}", authMW(requireOwner(http.HandlerFunc(listingsHandler.DeletePhoto))))

	// Offers.
	mux.Handle("GET /api/listings/{id}/offers", authMW(requireOwnerOrAdmin(http.HandlerFunc(offersHandler.ListForListing))))
	mux.Handle("POST /api/listings/{id}/offers", authMW(requireInvestor(http.HandlerFunc(offersHandler.Submit))))
	mux.Handle("POST /api/listings/{id}/offers/{offerID}/accept", authMW(requireOwnerOrAdmin(http.HandlerFunc(offersHandler.Accept))))
	mux.Handle("POST /api/listings/{id}/offers/{offerID}/reject", authMW(requireOwnerOrAdmin(http.HandlerFunc(offersHandler.Reject))))
	mux.Handle("GET /api/offers", authMW(requireInvestor(http.HandlerFunc(offersHandler.Mine))))
	mux.Handle("GET /api/offers/{id}", authMW(http.HandlerFunc(offersHandler.Get)))
	mux.Handle("POST /api/offers/{id}/withdraw", authMW(requireInvestor(http.HandlerFunc(offersHandler.Withdraw))))

	// Verification: investors submit, admins review.
	mux.Handle("PUT /api/verification/document", authMW(requireInvestor(http.HandlerFunc(verificationHandler.UploadDocument))))
	mux.Handle("POST /api/verification", authMW(requireInvestor(http.HandlerFunc(verificationHandler.Submit))))
	mux.Handle("GET /api/verification", authMW(requireInvestor(http.HandlerFunc(verificationHandler.Mine))))
	mux.Handle("GET /api/verifications", authMW(requireAdmin(http.HandlerFunc(verificationHandler.Pending))))
	mux.Handle("GET /api/verifications/{investorID}", authMW(requireAdmin(http.HandlerFunc(verificationHandler.Get))))
	mux.Handle("GET /api/verifications/{investorID}/document", authMW(requireAdmin(http.HandlerFunc(verificationHandler.Document))))
	mux.Handle("POST /api/verifications/{investorID}/review", authMW(requireAdmin(http.HandlerFunc(verificationHandler.Review))))

	// Activity feed (admin only).
	mux.Handle("GET /api/activity", authMW(requireAdmin(http.HandlerFunc(activityHandler.List))))

	return mux
}

// health reports whether the database answers.
func health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
