package utils

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"screedflow/models"
	"screedflow/repository"
)

type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func ErrorResponse(c *gin.Context, message string, code int) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func SuccessResponse(c *gin.Context, message string, code int) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// RespondError maps a command error onto its HTTP shape: validation failures to 400 with
// field messages, missing entities to 404, unsaved changes to 500 with persisted=false.
func RespondError(c *gin.Context, err error) {
	var verrs models.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, models.ValidationErrorResponse{Error: "validation failed", Fields: verrs})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotPersisted):
		c.JSON(http.StatusInternalServerError, models.PersistenceErrorResponse{
			Error:     "change was not saved",
			Details:   err.Error(),
			Persisted: false,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
	}
}

// SessionClaims identify the team member the dashboard acts as. Access level only decides
// which actions are offered.
type SessionClaims struct {
	MemberID    string             `json:"member_id"`
	Name        string             `json:"name"`
	AccessLevel models.AccessLevel `json:"access_level"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs an identity token for the member, valid for ttl.
func GenerateSessionToken(secret string, member models.TeamMember, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		MemberID:    member.ID,
		Name:        member.Name,
		AccessLevel: member.AccessLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates a token produced by GenerateSessionToken.
func ParseSessionToken(secret, tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token parsing error: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
