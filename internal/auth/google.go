package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

var ErrInvalidGoogleToken = errors.New("invalid google id token")

// GoogleUserInfo 구글 사용자 정보
type GoogleUserInfo struct {
	UID     string // "google:" + token subject
	Email   string
	Name    string
	Picture string
}

// GoogleAuthenticator 구글 ID 토큰 검증기
type GoogleAuthenticator struct {
	clientID string
}

func NewGoogleAuthenticator(clientID string) *GoogleAuthenticator {
	return &GoogleAuthenticator{clientID: clientID}
}

// VerifyIDToken validates a Google ID token and maps it to our subject
// namespace. Unverified emails are rejected.
func (g *GoogleAuthenticator) VerifyIDToken(ctx context.Context, token string) (*GoogleUserInfo, error) {
	payload, err := idtoken.Validate(ctx, token, g.clientID)
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}

	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return nil, errors.New("email not verified")
	}

	info := &GoogleUserInfo{
		UID:     "google:" + payload.Subject,
		Email:   stringClaim(payload.Claims, "email"),
		Name:    stringClaim(payload.Claims, "name"),
		Picture: stringClaim(payload.Claims, "picture"),
	}
	if info.Name == "" {
		info.Name = info.Email
	}
	return info, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}
