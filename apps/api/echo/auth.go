package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
)

// Role prefixes carried by the token roles, e.g. "admin:principal", "teacher:".
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"
	RoleStudent = "student:"
)

const (
	contextTokenKey = "userToken"
	tokenAudience   = "Academia"
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued by the school's identity service.
type Claims struct {
	jwt.StandardClaims
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	IsStudent bool     `json:"is_student,omitempty"`
	IsTeacher bool     `json:"is_teacher,omitempty"`
	IsAdmin   bool     `json:"is_admin,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	StudentID string   `json:"student_id,omitempty"` // set for students
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of a token valid for ttl.
func NewClaims(conf *core.Config, subject, username, email string, roles []string, ttl time.Duration) *Claims {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: username,
		Email:    email,
		Roles:    roles,
	}
	claims.IsAdmin = claims.hasRole(RoleAdmin)
	claims.IsTeacher = claims.hasRole(RoleTeacher)
	claims.IsStudent = claims.hasRole(RoleStudent)
	if claims.IsStudent {
		claims.StudentID = subject
	}
	return claims
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (c Claims) hasRole(prefix string) bool {
	for _, r := range c.Roles {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

func (c Claims) Admin() bool   { return c.IsAdmin || c.hasRole(RoleAdmin) }
func (c Claims) Teacher() bool { return c.IsTeacher || c.hasRole(RoleTeacher) }

// OwnStudentID is the student ID of the caller, if any.
func (c Claims) OwnStudentID() string {
	if c.StudentID != "" {
		return c.StudentID
	}
	if c.IsStudent || c.hasRole(RoleStudent) {
		return c.Subject
	}
	return ""
}

func (c Claims) Identity() core.Identity {
	return core.Identity{ID: c.Subject, Username: c.Username, Email: c.Email}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
