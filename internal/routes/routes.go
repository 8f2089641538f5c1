package routes

import (
	"github.com/gin-gonic/gin"

	"natours/internal/authz"
	"natours/internal/handlers"
	"natours/internal/middleware"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Users    *handlers.UserHandler
	Tours    *handlers.TourHandler
	Reviews  *handlers.ReviewHandler
	Bookings *handlers.BookingHandler
	Views    *handlers.ViewHandler
}

// SetupRoutes mounts the webhook, the API under /api/v1 and the views.
// api carries the middleware shared by every API route (rate limit, body
// limit).
func SetupRoutes(r *gin.Engine, h Handlers, auth middleware.Authenticator, api ...gin.HandlerFunc) *gin.Engine {
	protect := middleware.Protect(auth)
	staff := middleware.RestrictTo(authz.RoleAdmin, authz.RoleLeadGuide)

	// raw body, so it sits outside the JSON body limit
	r.POST("/webhook-checkout", h.Bookings.Webhook)

	v1 := r.Group("/api/v1", api...)

	// TOURS
	tours := v1.Group("/tours")
	{
		tours.GET("/top-5-cheap", h.Tours.AliasTopTours, h.Tours.GetAll)
		tours.GET("/tour-stats", h.Tours.Stats)
		tours.GET("/monthly-plan/:year", protect,
			middleware.RestrictTo(authz.RoleAdmin, authz.RoleLeadGuide, authz.RoleGuide), h.Tours.MonthlyPlan)
		tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", h.Tours.Within)
		tours.GET("/distances/:latlng/unit/:unit", h.Tours.Distances)

		tours.GET("", h.Tours.GetAll)
		tours.POST("", protect, staff, h.Tours.Create)
		tours.GET("/:id", h.Tours.Get)
		tours.PATCH("/:id", protect, staff, h.Tours.Update)
		tours.DELETE("/:id", protect, staff, h.Tours.Delete)
		tours.PATCH("/:id/images", protect, staff, h.Tours.UploadImages)

		nested := tours.Group("/:id/reviews", protect, h.Reviews.FromTour)
		nested.GET("", h.Reviews.GetAll)
		nested.POST("", middleware.RestrictTo(authz.RoleUser), h.Reviews.Create)
	}

	// USERS
	users := v1.Group("/users")
	{
		users.POST("/signup", h.Auth.Signup)
		users.POST("/login", h.Auth.Login)
		users.GET("/logout", h.Auth.Logout)
		users.POST("/forgotPassword", h.Auth.ForgotPassword)
		users.PATCH("/resetPassword/:token", h.Auth.ResetPassword)

		me := users.Group("", protect)
		me.PATCH("/updateMyPassword", h.Auth.UpdateMyPassword)
		me.GET("/me", h.Users.GetMe)
		me.PATCH("/updateMe", h.Users.UpdateMe)
		me.DELETE("/deleteMe", h.Users.DeleteMe)

		admin := users.Group("", protect, middleware.RestrictTo(authz.RoleAdmin))
		admin.GET("", h.Users.GetAll)
		admin.POST("", h.Users.Create)
		admin.GET("/:id", h.Users.Get)
		admin.PATCH("/:id", h.Users.Update)
		admin.DELETE("/:id", h.Users.Delete)
	}

	// REVIEWS
	reviews := v1.Group("/reviews", protect)
	{
		reviews.GET("", h.Reviews.GetAll)
		reviews.POST("", middleware.RestrictTo(authz.RoleUser), h.Reviews.Create)
		reviews.GET("/:id", h.Reviews.Get)
		reviews.PATCH("/:id", middleware.RestrictTo(authz.RoleUser, authz.RoleAdmin), h.Reviews.Update)
		reviews.DELETE("/:id", middleware.RestrictTo(authz.RoleUser, authz.RoleAdmin), h.Reviews.Delete)
	}

	// BOOKINGS
	bookings := v1.Group("/bookings", protect)
	{
		bookings.GET("/checkout-session/:tourId", h.Bookings.CheckoutSession)
		bookings.GET("/:id/receipt", h.Bookings.Receipt)

		bookings.GET("", staff, h.Bookings.GetAll)
		bookings.POST("", staff, h.Bookings.Create)
		bookings.GET("/:id", staff, h.Bookings.Get)
		bookings.PATCH("/:id", staff, h.Bookings.Update)
		bookings.DELETE("/:id", staff, h.Bookings.Delete)
	}

	// VIEWS
	views := r.Group("/", h.Views.Alerts)
	{
		optional := views.Group("", middleware.OptionalAuth(auth))
		optional.GET("/", h.Views.Overview)
		optional.GET("/tour/:slug", h.Views.Tour)
		optional.GET("/login", h.Views.Login)
		optional.GET("/signup", h.Views.Signup)

		views.GET("/me", protect, h.Views.Account)
		views.GET("/my-tours", protect, h.Views.MyTours)
		views.POST("/submit-user-data", protect, h.Views.SubmitUserData)
	}

	r.NoRoute(middleware.NotFound)
	return r
}
