package main

import "natours/internal/app"

// @title           Natours API
// @version         1.0
// @description     Tour booking API: tours, users, reviews and bookings.
// @BasePath        /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app.Run()
}
