package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK. It returns nil, nil when no
// credentials are configured.
func InitFirebase(ctx context.Context, cfg FirebaseConfig) (*firebase.App, error) {
	var opt option.ClientOption
	switch {
	case cfg.CredentialsBase64 != "":
		log.Printf("Using Firebase credentials from base64 environment variable")
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case cfg.CredentialsFile != "":
		log.Printf("Using Firebase credentials file: %s", cfg.CredentialsFile)
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, nil
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}
