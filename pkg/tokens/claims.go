package tokens

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the payload of the accessToken cookie issued by the auth service.
// Subject carries the user id as a UUID string.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
