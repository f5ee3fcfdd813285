package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-reports/core"
)

// Roles
const (
	RoleAdmin     = "admin:"
	RoleTeacher   = "teacher:"
	RoleReception = "reception:"
)

const contextTokenKey = "userToken"

// StaffRoles may read, export and send reports.
var StaffRoles = []string{RoleAdmin, RoleTeacher, RoleReception}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsTeacher    bool     `json:"is_teacher,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// NewClaims returns the claims of `subject` holding `roles`, valid for `ttl` from `now`.
// Roles are matched by prefix: "admin:principal" is an admin role.
func NewClaims(conf *core.Config, subject, username, email string, roles []string, now time.Time, ttl time.Duration) *Claims {
	if ttl <= 0 {
		ttl = conf.Server.JWTExpirationDelta
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			Audience:  "Academia",
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Unix(),
		Username:     username,
		Email:        email,
		IsTeacher:    hasAnyRole(roles, RoleTeacher),
		IsAdmin:      hasAnyRole(roles, RoleAdmin),
		Roles:        roles,
	}
}

// Person returns who the claims belong to, for logging.
func (c Claims) Person() core.Person {
	return core.Person{ID: c.Subject, Username: c.Username, Email: c.Email}
}

func (c Claims) IsStaff() bool {
	return c.IsAdmin || c.IsTeacher || hasAnyRole(c.Roles, StaffRoles...)
}

func newJWTConfig(secretKey string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		return hasAnyRole(claims.Roles, roles...)
	}
	return false
}

// hasAnyRole reports whether any of `held` starts with any of `roles`.
func hasAnyRole(held []string, roles ...string) bool {
	for _, h := range held {
		for _, role := range roles {
			if strings.HasPrefix(h, role) {
				return true
			}
		}
	}
	return false
}
