package internal

import (
	"net/http"

	"lrd/internal/controllers"
	"lrd/internal/providers"
	"lrd/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/telemetry", http.HandlerFunc(apiController.ReceiveTelemetry))
	routers.Post("/claim", http.HandlerFunc(apiController.RequestClaim))
	routers.Post("/claim/answer", http.HandlerFunc(apiController.AnswerChallenge))
	routers.Get("/claim/status", http.HandlerFunc(apiController.GetClaimStatus))
	routers.Post("/subscription", http.HandlerFunc(apiController.SetSubscription))
	routers.Post("/stake", http.HandlerFunc(apiController.Stake))
	routers.Post("/destination", http.HandlerFunc(apiController.SetDestination))
	routers.Post("/verify", http.HandlerFunc(apiController.PeerVerify))
	routers.Post("/catalog", http.HandlerFunc(apiController.UpdateCatalog))
	routers.Get("/earnings", http.HandlerFunc(apiController.GetEarnings))
	routers.Get("/trust", http.HandlerFunc(apiController.GetTrust))
	routers.Get("/aggregate", http.HandlerFunc(apiController.GetAggregate))
	routers.Get("/proof", http.HandlerFunc(apiController.GetProof))
	routers.Get("/export", http.HandlerFunc(apiController.ExportState))
	routers.Post("/import", http.HandlerFunc(apiController.ImportState))
	return routers
}
