package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(
	auctionHandler *AuctionHandler,
	giveawayHandler *GiveawayHandler,
	notificationHandler *NotificationHandler,
	jwtSecret string,
) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Get("/api/auctions", auctionHandler.HandleListAuctions)
	mux.Get("/api/auctions/{id}", auctionHandler.HandleGetAuction)
	mux.Get("/api/giveaways", giveawayHandler.HandleListGiveaways)

	mux.Group(func(r chi.Router) {
		r.Use(JWTAuth(jwtSecret))

		r.Post("/api/auctions", auctionHandler.HandleCreateAuction)
		r.Post("/api/auctions/{id}/bids", auctionHandler.HandlePlaceBid)
		r.Post("/api/auctions/{id}/cancel", auctionHandler.HandleCancelAuction)

		r.Post("/api/giveaways", giveawayHandler.HandleCreateGiveaway)
		r.Post("/api/giveaways/{id}/participate", giveawayHandler.HandleParticipate)
		r.Post("/api/giveaways/{id}/cancel", giveawayHandler.HandleCancelGiveaway)

		r.Get("/api/notifications", notificationHandler.HandleListNotifications)
		r.Post("/api/notifications/{id}/read", notificationHandler.HandleMarkRead)

		r.Group(func(admin chi.Router) {
			admin.Use(RequireAdmin)
			admin.Post("/api/admin/auctions/sweep", auctionHandler.HandleSweep)
		})
	})

	return mux
}
