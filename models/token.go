package models

import "time"

// AuthToken records one issued bearer token (by its jti claim) so logout
// can revoke every token a user holds. The auth middleware rejects JWTs
// whose record is gone.
type AuthToken struct {
	Id        uint      `json:"id" gorm:"primaryKey"`
	UserId    string    `json:"user_id" gorm:"index;not null"`
	TokenId   string    `json:"-" gorm:"size:64;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
}
