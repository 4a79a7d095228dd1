package controllers

import (
	"errors"

	"weather-dashboard-backend/config"
	"weather-dashboard-backend/middlewares"
	"weather-dashboard-backend/models"
	"weather-dashboard-backend/openweather"
	"weather-dashboard-backend/weatherdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const searchResultLimit = 5

// CityController manages the favorites registry: the discovery pool,
// per-user favorites with latest conditions, geocoding search and the
// favorite-gated historical series.
type CityController struct {
	DB        *gorm.DB
	Client    WeatherProvider
	Directory *weatherdata.Directory
	Store     *weatherdata.Store
	Cfg       config.WeatherConfig
	Log       *zap.Logger
}

// Index lists cities not yet favorited by anyone, seeding the configured
// defaults when the pool is empty.
func (ct *CityController) Index(c *fiber.Ctx) error {
	pool, err := ct.discoveryPool()
	if err != nil {
		return err
	}

	if len(pool) == 0 {
		ct.Directory.SeedDefaults(c.Context())
		if pool, err = ct.discoveryPool(); err != nil {
			return err
		}
	}

	return c.JSON(pool)
}

func (ct *CityController) discoveryPool() ([]models.City, error) {
	cities := []models.City{}
	sub := ct.DB.Model(&models.UserCity{}).Distinct().Select("city_id")
	err := ct.DB.Where("id NOT IN (?)", sub).Find(&cities).Error
	return cities, err
}

// favoriteCity is a City annotated with its most recent sample, when one
// exists.
type favoriteCity struct {
	models.City
	CurrentTemp      *float64 `json:"current_temp"`
	CurrentCondition *string  `json:"current_condition"`
	CurrentIcon      *string  `json:"current_icon"`
}

// UserCities lists the caller's favorites with latest conditions. Cities
// without any stored sample carry null conditions, never an error.
func (ct *CityController) UserCities(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)

	var cities []models.City
	err := ct.DB.
		Joins("JOIN user_cities ON user_cities.city_id = cities.id").
		Where("user_cities.user_id = ?", userID).
		Find(&cities).Error
	if err != nil {
		return err
	}

	out := make([]favoriteCity, 0, len(cities))
	for _, city := range cities {
		fav := favoriteCity{City: city}
		if sample, ok, err := ct.Store.Latest(city.Id); err != nil {
			ct.Log.Error("latest sample lookup failed", zap.String("city", city.Name), zap.Error(err))
		} else if ok {
			fav.CurrentTemp = &sample.Temperature
			fav.CurrentCondition = &sample.Condition
			fav.CurrentIcon = &sample.Icon
		}
		out = append(out, fav)
	}

	return c.JSON(out)
}

type addCityRequest struct {
	CityID int `json:"city_id" validate:"required"`
}

// Add puts a city into the caller's favorites, creating the City row on
// first reference. At most ten favorites per user.
func (ct *CityController) Add(c *fiber.Ctx) error {
	var req addCityRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	userID, _ := c.Locals("userID").(string)

	var count int64
	if err := ct.DB.Model(&models.UserCity{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count >= models.MaxFavoritesPerUser {
		return fiber.NewError(fiber.StatusBadRequest, "favorite city limit of 10 reached")
	}

	city, err := ct.Directory.ResolveOrCreate(c.Context(), req.CityID)
	if errors.Is(err, weatherdata.ErrCityNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		ct.Log.Error("city resolution failed", zap.Int("openweather_id", req.CityID), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not add city")
	}

	var existing int64
	if err := ct.DB.Model(&models.UserCity{}).
		Where("user_id = ? AND city_id = ?", userID, city.Id).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "city already in favorites")
	}

	if err := ct.DB.Create(&models.UserCity{UserId: userID, CityId: city.Id}).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "city added to favorites",
		"city":    city,
	})
}

// Remove detaches a city from the caller's favorites. A non-default city
// favorited by nobody else is deleted along with its whole sample history.
func (ct *CityController) Remove(c *fiber.Ctx) error {
	cityID, err := c.ParamsInt("cityId")
	if err != nil || cityID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city id")
	}
	userID, _ := c.Locals("userID").(string)

	var city models.City
	err = ct.DB.Where("open_weather_id = ?", cityID).First(&city).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "city not found")
	}
	if err != nil {
		return err
	}

	if err := ct.DB.Where("user_id = ? AND city_id = ?", userID, city.Id).
		Delete(&models.UserCity{}).Error; err != nil {
		return err
	}

	if !ct.Cfg.IsDefaultCity(cityID) {
		var others int64
		if err := ct.DB.Model(&models.UserCity{}).Where("city_id = ?", city.Id).Count(&others).Error; err != nil {
			return err
		}
		if others == 0 {
			if err := ct.Store.DeleteForCity(city.Id); err != nil {
				return err
			}
			if err := ct.DB.Delete(&city).Error; err != nil {
				return err
			}
			ct.Log.Info("deleted unfavorited city", zap.String("city", city.Name))
		}
	}

	return c.JSON(fiber.Map{
		"message": "city removed from favorites",
	})
}

// Search runs a geocoding lookup. Queries shorter than three characters
// are rejected before any provider call.
func (ct *CityController) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if len(query) < 3 {
		return fiber.NewError(fiber.StatusBadRequest, "query must be at least 3 characters")
	}

	results, err := ct.Client.Search(c.Context(), query, searchResultLimit)
	if err != nil {
		ct.Log.Error("city search failed", zap.String("query", query), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not search cities")
	}
	if results == nil {
		results = []openweather.SearchResult{}
	}

	return c.JSON(results)
}

// Historical returns the full sample series for a city the caller
// favorites; access without the favorite relationship is forbidden.
func (ct *CityController) Historical(c *fiber.Ctx) error {
	cityID, err := c.ParamsInt("cityId")
	if err != nil || cityID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid city id")
	}
	userID, _ := c.Locals("userID").(string)

	// A caller cannot favorite a city that does not exist, so an unknown
	// city is rejected the same way as a non-favorited one.
	var city models.City
	err = ct.DB.Where("open_weather_id = ?", cityID).First(&city).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusForbidden, "no access to historical data for this city")
	}
	if err != nil {
		return err
	}

	var favorite int64
	if err := ct.DB.Model(&models.UserCity{}).
		Where("user_id = ? AND city_id = ?", userID, city.Id).
		Count(&favorite).Error; err != nil {
		return err
	}
	if favorite == 0 {
		return fiber.NewError(fiber.StatusForbidden, "no access to historical data for this city")
	}

	points, err := ct.Store.History(city.Id)
	if err != nil {
		ct.Log.Error("historical lookup failed", zap.String("city", city.Name), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "could not fetch historical data")
	}

	return c.JSON(fiber.Map{
		"city": fiber.Map{
			"id":      city.Id,
			"name":    city.Name,
			"country": city.Country,
		},
		"data": points,
	})
}
