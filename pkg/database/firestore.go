package database

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseConfig selects the GCP project and, for local runs, a service
// account file. Without a file Application Default Credentials are used.
type FirebaseConfig struct {
	ProjectID       string `env:"FIRESTORE_PROJECT_ID"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
}

func (c FirebaseConfig) clientOptions() []option.ClientOption {
	if f := strings.TrimSpace(c.CredentialsFile); f != "" {
		return []option.ClientOption{option.WithCredentialsFile(f)}
	}
	return nil
}

// NewFirebaseApp initialises the Firebase Admin app shared by the Firestore
// and Auth clients.
func NewFirebaseApp(ctx context.Context, cfg FirebaseConfig) (*firebase.App, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, fmt.Errorf("firebase: project id is required")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("firebase app (project=%s): %w", cfg.ProjectID, err)
	}
	return app, nil
}

// NewFirestoreClient opens a Firestore client from app.
func NewFirestoreClient(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}
