package firebase

import (
	"context"
	"os"

	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"sulestate/pkg/config"
	"sulestate/pkg/errors"
	"sulestate/pkg/logger"
)

// Identity is a verified caller. Admin is set when the caller may use the
// admin console.
type Identity struct {
	UID   string
	Email string
	Admin bool
}

// ClientOptions picks the service account from FIREBASE_SERVICE_ACCOUNT_JSON,
// then FIREBASE_SERVICE_ACCOUNT_PATH, then application default credentials.
func ClientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}
	}
	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); err == nil {
			logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
			return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}
		}
		logger.Warn("Service account file %s not found, falling back to default credentials", cfg.FirebaseServiceAccountPath)
	}
	return nil
}

func NewApp(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*fbapp.App, error) {
	return fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:     cfg.FirebaseProject,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
}

// FirebaseAuthClient verifies Firebase ID tokens and decides whether the caller
// is an admin: either its UID is allowlisted or it carries the admin claim.
type FirebaseAuthClient struct {
	client    *auth.Client
	adminUIDs map[string]struct{}
}

func NewFirebaseAuthClient(client *auth.Client, adminUIDs []string) *FirebaseAuthClient {
	allowed := make(map[string]struct{}, len(adminUIDs))
	for _, uid := range adminUIDs {
		allowed[uid] = struct{}{}
	}
	return &FirebaseAuthClient{
		client:    client,
		adminUIDs: allowed,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, idToken string) (*Identity, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, errors.Unauthorized("Invalid or expired token", err)
	}

	identity := &Identity{
		UID:   token.UID,
		Admin: f.isAdmin(token.UID, token.Claims),
	}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	return identity, nil
}

func (f *FirebaseAuthClient) isAdmin(uid string, claims map[string]interface{}) bool {
	if _, ok := f.adminUIDs[uid]; ok {
		return true
	}
	admin, _ := claims["admin"].(bool)
	return admin
}
