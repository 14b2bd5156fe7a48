package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"strata-violations/internal/model"
)

const (
	TokenKindStaff    = "staff"
	TokenKindOccupant = "occupant"
)

var ErrWrongTokenKind = errors.New("token kind not accepted here")

// Claims is the staff access token issued by the identity service.
type Claims struct {
	UserID int64          `json:"uid"`
	Email  string         `json:"email"`
	Role   model.UserRole `json:"role"`
	Kind   string         `json:"kind,omitempty"`
	jwt.RegisteredClaims
}

// OccupantClaims is the short-lived session issued after email verification.
type OccupantClaims struct {
	PersonID    int64  `json:"person_id"`
	ViolationID int64  `json:"violation_id"`
	LinkToken   string `json:"link_token"`
	Kind        string `json:"kind"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

func (p *Parser) keyFunc(token *jwt.Token) (interface{}, error) {
	return p.secret, nil
}

func (p *Parser) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, p.keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Kind != "" && claims.Kind != TokenKindStaff {
		return nil, ErrWrongTokenKind
	}
	if claims.UserID == 0 || claims.Role == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

func (p *Parser) ParseOccupant(tokenStr string) (*OccupantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &OccupantClaims{}, p.keyFunc, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*OccupantClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Kind != TokenKindOccupant {
		return nil, ErrWrongTokenKind
	}

	return claims, nil
}

// Issuer signs occupant sessions with the shared access secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *Issuer) IssueOccupant(session model.OccupantSession) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := OccupantClaims{
		PersonID:    session.PersonID,
		ViolationID: session.ViolationID,
		LinkToken:   session.LinkToken,
		Kind:        TokenKindOccupant,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}
