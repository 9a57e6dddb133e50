package secrets

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/box"
)

// githubAPIVersion pins the GitHub REST API version header.
const githubAPIVersion = "2022-11-28"

const defaultBaseURL = "https://api.github.com"

// GitHubConfig configures a GitHub Actions secrets client.
type GitHubConfig struct {
	// Token is a personal access token with repo scope.
	Token string

	// BaseURL overrides the API root; tests point it at a local server.
	BaseURL string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// GitHub provisions repository secrets through the GitHub Actions secrets
// API. Values are sealed with the repository's public key before transit,
// as the API requires; encryption at rest is the store's own concern.
type GitHub struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu   sync.Mutex
	keys map[string]*repoPublicKey // destination -> cached public key
}

type repoPublicKey struct {
	KeyID string `json:"key_id"`
	Key   string `json:"key"`
}

// NewGitHub creates a GitHub secrets client.
func NewGitHub(config GitHubConfig) *GitHub {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GitHub{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      config.Token,
		httpClient: httpClient,
		keys:       make(map[string]*repoPublicKey),
	}
}

// APIError represents a non-2xx response from the GitHub REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: HTTP %d: %s", e.StatusCode, e.Message)
}

// Check verifies the token against the authenticated-user endpoint.
func (g *GitHub) Check(ctx context.Context) error {
	if g.token == "" {
		return fmt.Errorf("%w: no token configured", ErrNotAuthenticated)
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := g.get(ctx, "/user", &user); err != nil {
		if isStatus(err, http.StatusUnauthorized) || isStatus(err, http.StatusForbidden) {
			return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
		return fmt.Errorf("checking authentication: %w", err)
	}
	return nil
}

// Provision transmits each secret independently. The repository public key
// is fetched once per destination and cached for the batch.
func (g *GitHub) Provision(ctx context.Context, secrets []Secret) []Outcome {
	outcomes := make([]Outcome, 0, len(secrets))
	for _, s := range secrets {
		if s.Value == "" {
			outcomes = append(outcomes, Outcome{Name: s.Name, Status: StatusSkipped})
			continue
		}
		if err := g.putSecret(ctx, s); err != nil {
			outcomes = append(outcomes, Outcome{Name: s.Name, Status: StatusFailed, Err: err})
			continue
		}
		outcomes = append(outcomes, Outcome{Name: s.Name, Status: StatusProvisioned})
	}
	return outcomes
}

func (g *GitHub) putSecret(ctx context.Context, s Secret) error {
	owner, repo, err := splitDestination(s.Destination)
	if err != nil {
		return err
	}
	key, err := g.publicKey(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("fetching public key for %s: %w", s.Destination, err)
	}
	sealed, err := sealValue(s.Value, key.Key)
	if err != nil {
		return fmt.Errorf("sealing secret %s: %w", s.Name, err)
	}
	body := struct {
		EncryptedValue string `json:"encrypted_value"`
		KeyID          string `json:"key_id"`
	}{EncryptedValue: sealed, KeyID: key.KeyID}

	path := fmt.Sprintf("/repos/%s/%s/actions/secrets/%s", owner, repo, s.Name)
	if err := g.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("storing secret %s in %s: %w", s.Name, s.Destination, err)
	}
	return nil
}

func (g *GitHub) publicKey(ctx context.Context, owner, repo string) (*repoPublicKey, error) {
	dest := owner + "/" + repo

	g.mu.Lock()
	if key, ok := g.keys[dest]; ok {
		g.mu.Unlock()
		return key, nil
	}
	g.mu.Unlock()

	var key repoPublicKey
	path := fmt.Sprintf("/repos/%s/%s/actions/secrets/public-key", owner, repo)
	if err := g.get(ctx, path, &key); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.keys[dest] = &key
	g.mu.Unlock()
	return &key, nil
}

// sealValue encrypts value for the repository using an anonymous NaCl
// sealed box, the scheme the Actions secrets API requires (libsodium
// crypto_box_seal).
func sealValue(value, publicKeyB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return "", fmt.Errorf("decoding public key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("public key is %d bytes, want 32", len(raw))
	}
	var recipient [32]byte
	copy(recipient[:], raw)
	sealed, err := box.SealAnonymous(nil, []byte(value), &recipient, rand.Reader)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (g *GitHub) get(ctx context.Context, path string, out any) error {
	return g.do(ctx, http.MethodGet, path, nil, out)
}

func (g *GitHub) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func isStatus(err error, code int) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == code
}

func splitDestination(dest string) (owner, repo string, err error) {
	parts := strings.Split(dest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("destination %q is not in owner/repo form", dest)
	}
	return parts[0], parts[1], nil
}
