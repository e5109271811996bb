package utils

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleProfile is the subset of the ID-token payload the server uses.
type GoogleProfile struct {
	Email string
	Name  string
}

// VerifyGoogleIDToken validates a Google-issued ID token against the
// configured OAuth client id and extracts the verified profile.
func VerifyGoogleIDToken(ctx context.Context, clientID, rawToken string) (*GoogleProfile, error) {
	if clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := idtoken.Validate(ctx, rawToken, clientID)
	if err != nil {
		return nil, fmt.Errorf("validate id token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("id token has no email claim")
	}
	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return nil, errors.New("google account email is not verified")
	}
	name, _ := payload.Claims["name"].(string)

	return &GoogleProfile{Email: email, Name: name}, nil
}
