package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carlink/market/internal/api/handlers"
	"carlink/market/internal/api/middleware"
	"carlink/market/internal/config"
	"carlink/market/internal/email"
	"carlink/market/internal/services"
)

// Services are the dependencies of the public API.
type Services struct {
	Users     services.IUserService
	Listings  services.IListingService
	Matches   services.IMatchService
	Favorites services.IFavoriteService
	Inquiries services.IInquiryService
	Chats     services.IChatService
}

// SetupRouter configures and returns the main Gin engine. The rate limiter is
// returned so the caller can run its cleanup loop.
func SetupRouter(cfg *config.Config, svc Services, log *zap.Logger) (*gin.Engine, *middleware.RateLimiterMiddleware) {
	r := gin.New()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, log)

	// Apply global middleware first (order matters)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins))

	userHandler := handlers.NewRestUserHandler(svc.Users, svc.Listings, cfg.JwtSecret, cfg.JwtTTL)
	listingHandler := handlers.NewRestListingHandler(svc.Listings)
	requestHandler := handlers.NewRestRequestHandler(svc.Matches)
	favoriteHandler := handlers.NewRestFavoriteHandler(svc.Favorites)
	inquiryHandler := handlers.NewRestInquiryHandler(svc.Inquiries)
	chatHandler := handlers.NewRestChatHandler(svc.Chats)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Public routes. The optional auth lets the limiter key by user.
		public := v1.Group("/")
		public.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())
		{
			public.POST("/auth/register", userHandler.Register)
			public.POST("/auth/login", userHandler.Login)

			public.GET("/listings", listingHandler.SearchListings)
			public.GET("/listings/:id", listingHandler.GetListingByID)
			public.GET("/users/:id", userHandler.GetUserByID)
			public.GET("/users/:id/listings", userHandler.GetUserListings)
		}

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())
		{
			authRequired.GET("/me", userHandler.GetMe)
			authRequired.PATCH("/me", userHandler.UpdateMe)
			authRequired.PUT("/me/device-token", userHandler.SetDeviceToken)

			authRequired.POST("/listings", listingHandler.CreateListing)
			authRequired.PATCH("/listings/:id", listingHandler.UpdateListing)
			authRequired.DELETE("/listings/:id", listingHandler.DeleteListing)
			authRequired.POST("/listings/:id/activate", listingHandler.ActivateListing)
			authRequired.POST("/listings/:id/deactivate", listingHandler.DeactivateListing)
			authRequired.POST("/listings/:id/images/upload-url", listingHandler.RequestImageUpload)
			authRequired.POST("/listings/:id/images/confirm", listingHandler.ConfirmImageUpload)

			authRequired.POST("/requests", requestHandler.CreateRequest)
			authRequired.GET("/requests", requestHandler.ListRequests)
			authRequired.GET("/requests/:id", requestHandler.GetRequest)
			authRequired.POST("/requests/:id/matches", requestHandler.GenerateMatches)
			authRequired.GET("/requests/:id/matches", requestHandler.ListMatches)

			authRequired.GET("/favorites", favoriteHandler.ListFavorites)
			authRequired.POST("/favorites/:listingId", favoriteHandler.AddFavorite)
			authRequired.DELETE("/favorites/:listingId", favoriteHandler.RemoveFavorite)

			authRequired.POST("/inquiries", inquiryHandler.CreateInquiry)
			authRequired.GET("/inquiries", inquiryHandler.ListInquiries)
			authRequired.GET("/inquiries/:id", inquiryHandler.GetInquiry)
			authRequired.POST("/inquiries/:id/respond", inquiryHandler.RespondToInquiry)

			authRequired.POST("/chats", chatHandler.StartChat)
			authRequired.GET("/chats", chatHandler.ListRooms)
			authRequired.GET("/chats/:id/messages", chatHandler.ListMessages)
			authRequired.POST("/chats/:id/messages", chatHandler.SendMessage)
			authRequired.POST("/chats/:id/read", chatHandler.MarkRoomRead)
			authRequired.POST("/messages/:id/read", chatHandler.MarkMessageRead)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/inquiries/:id/close", inquiryHandler.CloseInquiry)
		}
	}

	return r, rateLimiter
}

// SetupServiceRouter configures the internal service API. getTestEmail reads
// what the redis e-mail sender captured.
func SetupServiceRouter(rdb redis.Cmdable, shutdownChan chan<- struct{}, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info("received shutdown command via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Warn("shutdown channel already signaled")
			}
		case "getTestEmail":
			var args []string // [templateID, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateID, email]"})
				return
			}
			key := email.CaptureKey(args[1], args[0])

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			var raw string
			var getErr error
			for i := 0; i < 10; i++ {
				raw, getErr = rdb.Get(ctx, key).Result()
				if getErr == nil {
					rdb.Del(ctx, key)
					break
				}
				if !errors.Is(getErr, redis.Nil) {
					log.Error("service API: redis get failed", zap.String("key", key), zap.Error(getErr))
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}
			if getErr != nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", key)})
				return
			}

			var data map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				log.Error("service API: stored e-mail is not JSON", zap.String("key", key), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": data})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
