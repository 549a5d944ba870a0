// Package token は署名付きセッショントークンの発行と検証を提供する。
// サーバー側にセッションテーブルを持たず、HMAC署名と有効期限のみで
// 本人情報を証明するステートレスな方式を採用する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/lendman/internal/model"
)

// ErrInvalidOrExpired はトークンの検証失敗を表す。
// 署名不正・形式不正・期限切れを呼び出し側が区別できないよう、
// あえて単一のエラーに集約している。
var ErrInvalidOrExpired = errors.New("token is invalid or expired")

// sessionClaims はJWTのエンコードに使用する内部クレーム型。
type sessionClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Codec はセッショントークンの発行・検証を行う。
// 秘密鍵・有効期間・時計を保持し、状態を持たない。
type Codec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCodec はCodecを生成する。
// maxAgeはトークンの有効期間。nowがnilの場合はtime.Nowを使用する。
func NewCodec(secret string, maxAge time.Duration, now func() time.Time) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    now,
	}, nil
}

// MaxAge はトークンの有効期間を返す。Cookieの有効期間と揃えるために使用する。
func (c *Codec) MaxAge() time.Duration {
	return c.maxAge
}

// Issue は本人情報から署名付きトークンを発行する。
// 有効期限は発行時刻 + maxAge。クレームの形状は検証しない。
func (c *Codec) Issue(identity model.Identity) (string, error) {
	now := c.now()

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
		Name: identity.Name,
		Role: string(identity.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、本人情報を復元する。
// いかなる検証失敗もErrInvalidOrExpiredとして返す。
func (c *Codec) Verify(tokenString string) (*model.Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidOrExpired
	}

	if claims.Subject == "" {
		return nil, ErrInvalidOrExpired
	}

	return &model.Identity{
		Email: claims.Subject,
		Name:  claims.Name,
		Role:  model.Role(claims.Role),
	}, nil
}
