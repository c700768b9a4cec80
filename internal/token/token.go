package token

import (
	"fmt"
	"time"

	"voxel-server/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims - полезная нагрузка инстанс-токена. Токен выпускается
// Instance Manager-ом при выделении инстанса и проверяется дважды:
// на handshake POST /initialize и при каждом join_instance.
type Claims struct {
	InstanceID string `json:"instanceId"`
	PartyID    string `json:"partyId"`
	jwt.RegisteredClaims
}

// Signer выпускает и проверяет подписанные HS256-токены с истечением.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Issue выпускает токен доступа к инстансу.
func (s *Signer) Issue(instanceID, partyID string) (string, error) {
	now := time.Now()
	claims := Claims{
		InstanceID: instanceID,
		PartyID:    partyID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign instance token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок. Любой дефект токена - ErrUnauthorized.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	if claims.InstanceID == "" {
		return nil, fmt.Errorf("%w: token has no instanceId", domain.ErrUnauthorized)
	}
	return claims, nil
}

// VerifyFor дополнительно сверяет instanceId из токена с ожидаемым.
func (s *Signer) VerifyFor(tokenString, instanceID string) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.InstanceID != instanceID {
		return nil, fmt.Errorf("%w: token issued for instance %s, not %s", domain.ErrUnauthorized, claims.InstanceID, instanceID)
	}
	return claims, nil
}
