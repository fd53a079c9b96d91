package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// This keeps CI and scripted runs working without a stored profile.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(profile *Profile) error {
	return ErrStoreUnavailable
}

// Retrieve gets a profile from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Profile, error) {
	token := os.Getenv("STACSEARCH_API_TOKEN")
	baseURL := os.Getenv("STAC_API_URL")

	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables carry no profile name, so we use "default" or
	// the provided one
	if name == "" {
		name = "default"
	}

	return &Profile{
		Name:         name,
		Token:        token,
		BaseURL:      baseURL,
		LastModified: time.Now(),
	}, nil
}

// List returns a single profile if environment variables are set
func (e *EnvironmentStore) List() ([]*Profile, error) {
	profile, err := e.Retrieve("")
	if err != nil {
		return []*Profile{}, nil
	}
	return []*Profile{profile}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("STACSEARCH_API_TOKEN") != ""
}
