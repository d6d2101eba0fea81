package utils

import (
	"time" // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// JWT Claims
type Claims struct {
	UserID               uint `json:"user_id"`                   // Subject: a user ID, or an admin ID when IsAdmin is set
	IsAdmin              bool `json:"is_admin,omitempty"`        // Token belongs to an admin
	ImpersonatedBy       uint `json:"impersonated_by,omitempty"` // Admin that opened this user session
	jwt.RegisteredClaims      // Standard JWT claims
}

// IsAdminSession reports whether an admin is acting as the user
func (c *Claims) IsAdminSession() bool {
	return c.ImpersonatedBy != 0
}

// GenerateJWT creates a 24 hour JWT token for a given user ID
func GenerateJWT(userID uint, secret string) (string, error) {
	return signClaims(Claims{UserID: userID}, secret, 24*time.Hour)
}

// GenerateAdminJWT creates a 24 hour JWT token for an admin
func GenerateAdminJWT(adminID uint, secret string) (string, error) {
	return signClaims(Claims{UserID: adminID, IsAdmin: true}, secret, 24*time.Hour)
}

// GenerateImpersonationJWT creates a short lived user token on behalf of an admin
func GenerateImpersonationJWT(userID, adminID uint, secret string, ttl time.Duration) (string, error) {
	return signClaims(Claims{UserID: userID, ImpersonatedBy: adminID}, secret, ttl)
}

func signClaims(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
		IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid // Reject non-HMAC algorithms
		}
		return []byte(secret), nil // Return the secret key for validation
	})
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}
