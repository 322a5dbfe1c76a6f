package auth

import (
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the identity minted into a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims is the identity the auth layer hands to this service.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// IsOperator reports whether the token belongs to a notice operator.
func (c AccessTokenClaims) IsOperator() bool {
	return c.Role.IsOperator()
}
