package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// Operator returns the user name carried by the session token, or "" when the
// token is not a JWT or has no such claim. The signature is not checked: the
// result is for display only.
func Operator(s Session) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return ""
	}
	if name, ok := claims["username"].(string); ok && name != "" {
		return name
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
