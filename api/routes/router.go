package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aliasttt/bonusweb-sub000/api/controllers"
	"github.com/aliasttt/bonusweb-sub000/api/middleware"
	"github.com/aliasttt/bonusweb-sub000/internal/businesses"
	"github.com/aliasttt/bonusweb-sub000/internal/campaigns"
	"github.com/aliasttt/bonusweb-sub000/internal/qrcodes"
	"github.com/aliasttt/bonusweb-sub000/internal/rewards"
	"github.com/aliasttt/bonusweb-sub000/internal/verification"
	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/identity"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
	"github.com/aliasttt/bonusweb-sub000/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	rewardsService rewards.Service,
	businessService businesses.Service,
	campaignService campaigns.Service,
	qrService qrcodes.Service,
	verificationService verification.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/qrcodes/validate", controllers.ValidateQRCode(qrService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Identity, logg))

		r.Route("/rewards", func(r chi.Router) {
			r.Post("/scan", controllers.Scan(rewardsService, logg))
			r.Post("/redeem", controllers.Redeem(rewardsService, logg))
			r.Get("/balance", controllers.Balance(rewardsService, logg))
			r.Get("/history", controllers.History(rewardsService, logg))
		})

		r.Route("/verification", func(r chi.Router) {
			r.Post("/send", controllers.SendVerification(verificationService, logg))
			r.Post("/check", controllers.CheckVerification(verificationService, logg))
		})

		r.Route("/businesses", func(r chi.Router) {
			r.Get("/", controllers.ListBusinesses(businessService, logg))
			r.Get("/{businessId}", controllers.GetBusiness(businessService, logg))
			r.Get("/{businessId}/products", controllers.ListBusinessProducts(businessService, logg))
		})

		r.Route("/business", func(r chi.Router) {
			r.Post("/", controllers.RegisterBusiness(businessService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(identity.RoleBusiness, logg))

				r.Get("/me", controllers.BusinessProfile(businessService, logg))
				r.Patch("/me", controllers.UpdateBusinessProfile(businessService, logg))
				r.Put("/me/scan-password", controllers.SetScanPassword(businessService, logg))
				r.Delete("/me/scan-password", controllers.ClearScanPassword(businessService, logg))

				r.Route("/me/products", func(r chi.Router) {
					r.Get("/", controllers.ListOwnProducts(businessService, logg))
					r.Post("/", controllers.CreateProduct(businessService, logg))
					r.Patch("/{productId}", controllers.UpdateProduct(businessService, logg))
					r.Delete("/{productId}", controllers.DeleteProduct(businessService, logg))
				})

				r.Route("/me/campaigns", func(r chi.Router) {
					r.Get("/", controllers.ListCampaigns(campaignService, businessService, logg))
					r.Post("/", controllers.CreateCampaign(campaignService, businessService, logg))
					r.Patch("/{campaignId}", controllers.UpdateCampaign(campaignService, businessService, logg))
					r.Delete("/{campaignId}", controllers.DeleteCampaign(campaignService, businessService, logg))
				})

				r.Route("/me/qrcodes", func(r chi.Router) {
					r.Get("/", controllers.ListQRCodes(qrService, businessService, logg))
					r.Post("/", controllers.IssueQRCodes(qrService, businessService, logg))
					r.Get("/image", controllers.QRCodeImage(qrService, businessService, logg))
					r.Delete("/{codeId}", controllers.DeactivateQRCode(qrService, businessService, logg))
				})
			})
		})
	})

	return r
}
