package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// BuyerClaims is the identity asserted by the external identity provider.
// The subject carries the buyer identity used to key carts, customers and orders.
type BuyerClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// BuyerID returns the stable buyer identity carried in the subject claim.
func (c *BuyerClaims) BuyerID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
