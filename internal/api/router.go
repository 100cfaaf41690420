package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hostel-allocation-backend/config"
	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/mw"
	"hostel-allocation-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, svc *allocation.Service, s store.Store, webpushOptions *webpush.Options, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID())

	handler := NewHandler(svc, s, webpushOptions, m)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RequestIPHeader)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	r.GET("/health", handler.Health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter, mw.InvalidateOnWrite(cacheStore))
	{
		api.GET("/public/hostels", caching, handler.ListHostels)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(mw.Authenticate([]byte(cfg.Auth.JWTSecret)))

		authed.GET("/subscriptions", handler.GetSubscription)
		authed.PUT("/subscriptions", handler.PutSubscription)
		authed.DELETE("/subscriptions", handler.DeleteSubscription)

		admin := authed.Group("/admin", mw.RequireRole(model.RoleAdmin))
		admin.POST("/hostels", handler.CreateHostel)
		admin.DELETE("/hostels/:hostel_id", handler.DeleteHostel)
		admin.GET("/hostels/:hostel_id/rooms", handler.GetHostelRooms)
		admin.POST("/hostels/allocate", handler.BulkAllocate)
		admin.POST("/rooms", handler.CreateRoom)
		admin.PUT("/rooms/:room_id", handler.UpdateRoom)
		admin.DELETE("/rooms/:room_id", handler.DeleteRoom)
		admin.POST("/students/allocate-room", handler.AllocateRoom(allocation.AllocateOptions{}))
		admin.DELETE("/students/:student_id/hostel", handler.RemoveFromHostel)
		admin.DELETE("/students/:student_id/room", handler.DeallocateRoom)
		admin.DELETE("/students/:student_id", handler.DeleteStudent)

		student := authed.Group("/students", mw.RequireRole(model.RoleStudent))
		student.POST("/apply-hostel", handler.ApplyHostel)

		warden := authed.Group("/wardens", mw.RequireRole(model.RoleWarden))
		warden.GET("/hostels/:hostel_id/rooms", handler.GetHostelRooms)
		warden.PUT("/rooms/:room_id", handler.UpdateRoom)
		warden.POST("/students/allocate-room", handler.AllocateRoom(allocation.AllocateOptions{ChargeFee: true}))
		warden.DELETE("/students/:student_id/room", handler.DeallocateRoom)
		warden.DELETE("/students/:student_id", handler.DeleteStudent)
	}

	return r
}
