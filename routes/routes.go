package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"weather-dashboard-backend/controllers"
	"weather-dashboard-backend/middlewares"
)

// Controllers bundles the handler sets wired into the app.
type Controllers struct {
	Auth    *controllers.AuthController
	Weather *controllers.WeatherController
	City    *controllers.CityController
}

// Register wires all HTTP routes. Registration order matters: the fixed
// weather/forecast paths must precede the :cityId parameter routes.
func Register(app *fiber.App, db *gorm.DB, jwtSecret []byte, ctrl Controllers) {
	// Public auth endpoints
	app.Post("/register", ctrl.Auth.Register)
	app.Post("/login", ctrl.Auth.Login)

	// Public weather reads
	app.Get("/weather/coordinates", ctrl.Weather.CurrentByCoords)
	app.Get("/weather/city", ctrl.Weather.CurrentByName)
	app.Get("/weather/forecast/coordinates", ctrl.Weather.ForecastByCoords)
	app.Get("/weather/forecast/city", ctrl.Weather.ForecastByName)
	app.Get("/weather/forecast/:cityId", ctrl.Weather.ForecastByID)
	app.Get("/weather/:cityId", ctrl.Weather.CurrentByID)

	// Public city discovery
	app.Get("/cities/search", ctrl.City.Search)
	app.Get("/cities", ctrl.City.Index)

	// Protected endpoints (bearer token)
	protected := app.Group("", middlewares.IsAuthenticated(db, jwtSecret))
	protected.Post("/logout", ctrl.Auth.Logout)
	protected.Get("/cities/user", ctrl.City.UserCities)
	protected.Post("/cities", ctrl.City.Add)
	protected.Delete("/cities/:cityId", ctrl.City.Remove)
	protected.Get("/cities/:cityId/historical", ctrl.City.Historical)
}
