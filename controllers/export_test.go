package controllers

// FavoriteCity exposes favoriteCity to the external test package.
type FavoriteCity = favoriteCity
