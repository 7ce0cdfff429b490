package router

import (
	"net/http"

	"github.com/senyabanana/organ-match-service/internal/handlers"
)

func InitRoutes(matchHandler *handlers.MatchHandler, registryHandler *handlers.RegistryHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", handlers.Ping(matchHandler.Logger))

	mux.HandleFunc("POST /api/matching/run", matchHandler.RunPass)
	mux.HandleFunc("POST /api/matches/manual", matchHandler.ManualMatch)
	mux.HandleFunc("GET /api/matches", matchHandler.ListMatches)
	mux.HandleFunc("GET /api/matches/{matchId}", matchHandler.GetMatch)
	mux.HandleFunc("PUT /api/matches/{matchId}/status", matchHandler.UpdateMatchStatus)
	mux.HandleFunc("PUT /api/matches/{matchId}/request-status", matchHandler.UpdateRequestStatus)

	mux.HandleFunc("PUT /api/donors/{donorId}", registryHandler.UpsertDonor)
	mux.HandleFunc("GET /api/donors/{donorId}", registryHandler.GetDonor)
	mux.HandleFunc("POST /api/donors/{donorId}/withdraw", registryHandler.WithdrawDonor)
	mux.HandleFunc("POST /api/requests", registryHandler.CreateRequest)
	mux.HandleFunc("GET /api/requests", registryHandler.ListRequests)
	mux.HandleFunc("GET /api/requests/{requestId}", registryHandler.GetRequest)

	return mux
}
