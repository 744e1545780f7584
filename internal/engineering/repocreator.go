package engineering

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v66/github"
	"golang.org/x/crypto/nacl/box"
)

// RepoCreator is the minimal surface the architect node needs from the
// project's code host. GitHubRepoCreator implements it against the real
// GitHub API; tests substitute a stub.
type RepoCreator interface {
	CreateRepository(ctx context.Context, name string, private bool) (repositoryURL string, err error)
	SetSecret(ctx context.Context, owner, repo, name, value string) error
}

// GitHubRepoCreator creates repositories and configures CI secrets via a
// GitHub App installation, grounded on
// Aureuma-si/apps/ReleaseParty's internal/githubapp.App.
type GitHubRepoCreator struct {
	client *github.Client
	owner  string
}

// NewGitHubRepoCreator builds an installation-scoped client for owner's
// organization/account.
func NewGitHubRepoCreator(appID, installationID int64, privateKeyPEM []byte, owner string) (*GitHubRepoCreator, error) {
	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("engineering: failed to build GitHub App transport: %w", err)
	}
	return &GitHubRepoCreator{
		client: github.NewClient(&http.Client{Transport: tr}),
		owner:  owner,
	}, nil
}

// CreateRepository creates an empty repository under the installation's
// organization and returns its clone URL.
func (c *GitHubRepoCreator) CreateRepository(ctx context.Context, name string, private bool) (string, error) {
	repo, _, err := c.client.Repositories.Create(ctx, c.owner, &github.Repository{
		Name:    github.String(name),
		Private: github.Bool(private),
	})
	if err != nil {
		return "", fmt.Errorf("engineering: failed to create repository %s/%s: %w", c.owner, name, err)
	}
	return repo.GetCloneURL(), nil
}

// SetSecret uploads a CI secret to the repository, sealing value with
// the repository's own public key the way the GitHub Actions secrets
// API requires (an anonymous NaCl box, the same primitive libsodium's
// sealed_box wraps, which is what GitHub's own docs point client
// implementations at).
func (c *GitHubRepoCreator) SetSecret(ctx context.Context, owner, repo, name, value string) error {
	pubKey, _, err := c.client.Actions.GetRepoPublicKey(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("engineering: failed to fetch public key for %s/%s: %w", owner, repo, err)
	}

	encryptedValue, err := sealSecret(value, pubKey.GetKey())
	if err != nil {
		return fmt.Errorf("engineering: failed to encrypt secret %s: %w", name, err)
	}

	_, _, err = c.client.Actions.CreateOrUpdateRepoSecret(ctx, owner, repo, &github.EncryptedSecret{
		Name:           name,
		KeyID:          pubKey.GetKeyID(),
		EncryptedValue: encryptedValue,
	})
	if err != nil {
		return fmt.Errorf("engineering: failed to set secret %s on %s/%s: %w", name, owner, repo, err)
	}
	return nil
}

// sealSecret encrypts value for recipientKeyB64 (the repository's
// base64-encoded Curve25519 public key) using an anonymous NaCl box,
// returning the base64-encoded ciphertext the Actions API expects.
func sealSecret(value, recipientKeyB64 string) (string, error) {
	recipientKey, err := base64.StdEncoding.DecodeString(recipientKeyB64)
	if err != nil {
		return "", fmt.Errorf("invalid repository public key: %w", err)
	}
	if len(recipientKey) != 32 {
		return "", fmt.Errorf("repository public key has unexpected length %d", len(recipientKey))
	}

	var recipient [32]byte
	copy(recipient[:], recipientKey)

	sealed, err := box.SealAnonymous(nil, []byte(value), &recipient, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to seal secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}
