package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// accessFunc reads the payload of a fully qualified secret version
type accessFunc func(ctx context.Context, name string) ([]byte, error)

// GCPSecretManager reads service credentials from Google Cloud Secret Manager
type GCPSecretManager struct {
	projectID string
	access    accessFunc
	close     func() error
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	access := func(ctx context.Context, name string) ([]byte, error) {
		result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
		if err != nil {
			return nil, err
		}
		return result.Payload.Data, nil
	}
	return &GCPSecretManager{projectID: projectID, access: access, close: client.Close}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.close != nil {
		return sm.close()
	}
	return nil
}

// BuildSecretName returns projects/{project}/secrets/{id}/versions/latest.
// Fully qualified names are passed through unchanged.
func (sm *GCPSecretManager) BuildSecretName(secretID string) string {
	if strings.HasPrefix(secretID, "projects/") {
		if strings.Contains(secretID, "/versions/") {
			return secretID
		}
		return secretID + "/versions/latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", sm.projectID, secretID)
}

// GetSecret returns the latest version of a secret as a trimmed string
func (sm *GCPSecretManager) GetSecret(ctx context.Context, secretID string) (string, error) {
	data, err := sm.access(ctx, sm.BuildSecretName(secretID))
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", secretID, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("secret %s is empty", secretID)
	}
	return value, nil
}
