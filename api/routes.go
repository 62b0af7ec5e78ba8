package api

import (
	"log/slog"

	"github.com/gorilla/mux"
	"github.com/signalhunt/market/internal/config"
	"github.com/signalhunt/market/internal/dashboard"
	"github.com/signalhunt/market/internal/db"
	"github.com/signalhunt/market/internal/jobs"
	"github.com/signalhunt/market/internal/market"
	"github.com/signalhunt/market/internal/repository/sqlite"
)

// SetupRoutes wires repositories, the lifecycle engine and all HTTP handlers
// onto a router. pool may be nil when background extraction is disabled.
func SetupRoutes(cfg *config.Config, version, buildTime string, dbConn *db.DB, pool *jobs.WorkerPool, log *slog.Logger) *mux.Router {
	SetLogger(log)

	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Repository
	repo := sqlite.New(dbConn, log)

	engine := market.NewEngine(repo, repo, repo, repo, &market.NopEscrow{Logger: log}, log)
	agg := dashboard.NewAggregator(repo, repo, cfg.DashboardMaxAge)

	// Create handlers
	systemHandler := &SystemHandler{}
	authHandler := NewAuthHandler(repo, cfg.JWTSecret, cfg.TokenDuration)
	profilesHandler := NewProfilesHandler(repo)
	listingsHandler := NewListingsHandler(engine, repo, repo)
	bidsHandler := NewBidsHandler(engine, repo, repo)
	meetingsHandler := NewMeetingsHandler(engine, repo)
	dashboardHandler := NewDashboardHandler(agg)
	chatHandler := NewChatHandler(repo, pool)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Profile endpoints
	apiV1.HandleFunc("/profiles/me", profilesHandler.GetMe).Methods("GET")
	apiV1.HandleFunc("/profiles/me", profilesHandler.UpdateMe).Methods("PUT")
	apiV1.HandleFunc("/profiles/me/chat", chatHandler.SubmitTranscript).Methods("POST")

	// Listing endpoints
	apiV1.HandleFunc("/listings", listingsHandler.CreateListing).Methods("POST")
	apiV1.HandleFunc("/listings", listingsHandler.BrowseListings).Methods("GET")
	apiV1.HandleFunc("/listings/mine", listingsHandler.GetMyListing).Methods("GET")
	apiV1.HandleFunc("/listings/{id}", listingsHandler.UpdateListing).Methods("PUT")
	apiV1.HandleFunc("/listings/{id}/status", listingsHandler.SetListingStatus).Methods("PUT")

	// Bid endpoints
	apiV1.HandleFunc("/bids", bidsHandler.PlaceBid).Methods("POST")
	apiV1.HandleFunc("/bids/incoming", bidsHandler.ListIncomingBids).Methods("GET")
	apiV1.HandleFunc("/bids/mine", bidsHandler.ListMyBids).Methods("GET")
	apiV1.HandleFunc("/bids/{id}/respond", bidsHandler.RespondToBid).Methods("POST")

	// Meeting endpoints
	apiV1.HandleFunc("/meetings", meetingsHandler.ListMeetings).Methods("GET")
	apiV1.HandleFunc("/meetings/{id}/schedule", meetingsHandler.ScheduleMeeting).Methods("POST")
	apiV1.HandleFunc("/meetings/{id}/complete", meetingsHandler.CompleteMeeting).Methods("POST")
	apiV1.HandleFunc("/meetings/{id}/cancel", meetingsHandler.CancelMeeting).Methods("POST")

	// Dashboard
	apiV1.HandleFunc("/dashboard", dashboardHandler.Stats).Methods("GET")

	return r
}
