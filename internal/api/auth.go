package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// callerKey is the gin context key carrying the authenticated account.
const callerKey = "caller"

// Claims are the JWT claims carried by API tokens. Subject is the account
// the caller acts as; the engine decides what that account may do.
type Claims struct {
	jwt.RegisteredClaims
	Account string `json:"account"`
}

// AuthManager validates bearer tokens.
type AuthManager struct {
	secret []byte
}

// NewAuthManager builds a manager around an HMAC secret.
func NewAuthManager(secret string) *AuthManager {
	return &AuthManager{secret: []byte(secret)}
}

// IssueToken mints a token for an account. Used by operators to provision
// oracle and admin credentials out of band.
func (am *AuthManager) IssueToken(account string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Account: account,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(am.secret)
}

// parse validates a token string and returns its claims.
func (am *AuthManager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return am.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Account == "" {
		claims.Account = claims.Subject
	}
	if claims.Account == "" {
		return nil, fmt.Errorf("token carries no account")
	}
	return claims, nil
}

// Middleware authenticates requests and stores the caller account in the
// request context.
func (am *AuthManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := am.parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerKey, claims.Account)
		c.Next()
	}
}

// caller returns the authenticated account for the request.
func caller(c *gin.Context) string {
	return c.GetString(callerKey)
}
