package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/openclob/venue/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid API credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// Test credentials, bound to the first seeded broker.
var (
	TestAPIKey    = "test-api-key"
	TestAPISecret = "test-api-secret"
)

// Credentials represents the API authentication credentials
type Credentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	Expiration time.Time `json:"expiration"`
}

// Claims represents the JWT claims structure. Every token is bound to one
// broker from the venue's reference data; order-entry handlers check incoming
// orders against that binding.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"client_id"`
	BrokerID int64  `json:"broker_id"`
}

// brokerCredential is one registered API credential and the broker it
// trades as.
type brokerCredential struct {
	apiSecret string
	brokerID  int64
}

// Service issues and validates JWT tokens for broker API credentials.
type Service struct {
	jwtSecret   []byte
	credentials map[string]brokerCredential // keyed by API key
}

// NewService creates a new authentication service with the given JWT secret
func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret:   []byte(jwtSecret),
		credentials: make(map[string]brokerCredential),
	}
}

// RegisterBrokerCredentials binds an API key/secret pair to a broker from the
// reference data. Tokens issued for the key carry that broker id.
func (s *Service) RegisterBrokerCredentials(apiKey, apiSecret string, brokerID int64) {
	s.credentials[apiKey] = brokerCredential{apiSecret: apiSecret, brokerID: brokerID}
}

// GenerateToken generates a JWT token for valid broker credentials.
// The token carries the client ID and bound broker id with 24-hour expiration
func (s *Service) GenerateToken(creds Credentials) (*TokenResponse, error) {
	cred, ok := s.credentials[creds.APIKey]
	if !ok || cred.apiSecret != creds.APISecret {
		return nil, ErrInvalidCredentials
	}

	expiration := time.Now().Add(24 * time.Hour)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiration),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
		ClientID: creds.APIKey,
		BrokerID: cred.brokerID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		Expiration: expiration,
	}, nil
}

// ValidateToken validates a JWT token and returns the claims
// Verifies token signature and expiration
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for authentication endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateTokenHandler handles POST requests to exchange broker API
// credentials for a JWT token
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.GenerateToken(creds)
		if err == ErrInvalidCredentials {
			response.Unauthorized(c, err.Error())
			return
		}
		response.Handle(c, token, err)
	}
}

// BrokerID extracts the bound broker id from parsed JWT map claims.
// JSON numbers decode as float64.
func BrokerID(claims jwt.MapClaims) (int64, bool) {
	if id, ok := claims["broker_id"].(float64); ok {
		return int64(id), true
	}
	return 0, false
}
