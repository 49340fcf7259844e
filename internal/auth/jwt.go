package auth

import (
	"crypto/rsa"
	"errors"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

type Identity struct {
	UserID string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// JWTValidator accepts RS256 tokens when a public key is configured and
// HS256 tokens when a shared secret is.
type JWTValidator struct {
	pub    *rsa.PublicKey
	secret []byte
}

func NewJWTValidator(publicKeyPath, secret string) (*JWTValidator, error) {
	v := &JWTValidator{}
	if secret != "" {
		v.secret = []byte(secret)
	}
	if publicKeyPath != "" {
		b, err := os.ReadFile(publicKeyPath)
		if err != nil {
			return nil, err
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
		if err != nil {
			return nil, err
		}
		v.pub = pub
	}
	if v.pub == nil && v.secret == nil {
		return nil, errors.New("no jwt verification key configured")
	}
	return v, nil
}

func (j *JWTValidator) methods() []string {
	var out []string
	if j.pub != nil {
		out = append(out, jwt.SigningMethodRS256.Alg())
	}
	if j.secret != nil {
		out = append(out, jwt.SigningMethodHS256.Alg())
	}
	return out
}

func (j *JWTValidator) Validate(tokenStr string) (Identity, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA:
			return j.pub, nil
		case *jwt.SigningMethodHMAC:
			return j.secret, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithValidMethods(j.methods()))
	if err != nil || !tok.Valid {
		return Identity{}, ErrInvalidToken
	}

	var id Identity
	if v, ok := claims["user_id"].(string); ok && v != "" {
		id.UserID = v
	} else if v, ok := claims["sub"].(string); ok && v != "" {
		id.UserID = v
	} else {
		return Identity{}, ErrInvalidToken
	}
	id.Role, _ = claims["role"].(string)
	return id, nil
}
