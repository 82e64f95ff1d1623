//
// Copyright (c) 2025 Sumicare
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package github fetches release assets from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// API configuration constants.
const (
	// APIVersion is the GitHub REST API version header value.
	APIVersion = "2022-11-28"

	// DefaultAPIURL is the public GitHub REST API endpoint.
	DefaultAPIURL = "https://api.github.com"

	// httpTimeout is the default timeout for HTTP requests.
	httpTimeout = 10 * time.Minute

	// downloadFilePermission is the mode of downloaded assets.
	downloadFilePermission os.FileMode = 0o644
)

// Sentinel errors for GitHub API operations.
var (
	// ErrInvalidRepo indicates the repository is not an owner/name pair or GitHub URL.
	ErrInvalidRepo = errors.New("invalid GitHub repository")

	// ErrHTTPRequest indicates an HTTP request to the GitHub API failed.
	ErrHTTPRequest = errors.New("HTTP request failed")

	// ErrReleaseNotFound indicates the repository or release tag does not exist.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrNoMatchingAsset indicates no asset of the release matched the pattern.
	ErrNoMatchingAsset = errors.New("no asset matches pattern")

	// ErrInvalidPattern indicates the asset pattern is not a valid glob.
	ErrInvalidPattern = errors.New("invalid asset pattern")
)

type (
	// HTTPClient interface for HTTP operations (allows mocking).
	HTTPClient interface {
		// Do sends an HTTP request and returns an HTTP response.
		Do(req *http.Request) (*http.Response, error)
	}

	// Client provides methods to interact with the GitHub REST API.
	Client struct {
		httpClient HTTPClient
		apiURL     string
		authToken  string
		userAgent  string
	}

	// Release is the subset of the release payload used to pick assets.
	Release struct {
		TagName string  `json:"tag_name"`
		Assets  []Asset `json:"assets"`
	}

	// Asset is a file attached to a release.
	Asset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	}
)

// NewClient creates a new GitHub API client with default settings.
// It automatically uses GITHUB_TOKEN or GITHUB_API_TOKEN environment variable if set.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiURL:     DefaultAPIURL,
		authToken:  TokenFromEnv(),
		userAgent:  "fetch-fixtures",
	}
}

// NewClientWithHTTP creates a new GitHub client with a custom HTTP client.
func NewClientWithHTTP(httpClient HTTPClient, apiURL string) *Client {
	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(apiURL, "/"),
		authToken:  TokenFromEnv(),
		userAgent:  "fetch-fixtures",
	}
}

// TokenFromEnv returns GITHUB_TOKEN, falling back to GITHUB_API_TOKEN.
func TokenFromEnv() string {
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		return token
	}

	return strings.TrimSpace(os.Getenv("GITHUB_API_TOKEN"))
}

// SetToken sets the authentication token.
func (client *Client) SetToken(token string) {
	client.authToken = token
}

// SetAPIURL points the client at another API endpoint.
func (client *Client) SetAPIURL(apiURL string) {
	client.apiURL = strings.TrimRight(apiURL, "/")
}

// SetUserAgent sets the User-Agent header sent with every request.
func (client *Client) SetUserAgent(userAgent string) {
	client.userAgent = userAgent
}

// GetOwnerRepo splits a repository identifier into owner and name. It accepts
// "owner/name" as well as HTTPS and SSH GitHub URLs.
func GetOwnerRepo(repo string) (string, string, error) {
	const expectedParts = 2

	cleaned := strings.TrimSpace(repo)
	cleaned = strings.Replace(cleaned, "git@github.com:", "", 1)
	cleaned = strings.Replace(cleaned, "https://github.com/", "", 1)
	cleaned = strings.TrimSuffix(cleaned, "/")

	parts := strings.Split(cleaned, "/")
	if len(parts) != expectedParts || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}

	owner := parts[0]
	name := strings.TrimSuffix(parts[1], ".git")

	return owner, name, nil
}

// GetReleaseByTag fetches the release tagged version in repo.
func (client *Client) GetReleaseByTag(ctx context.Context, repo, version string) (*Release, error) {
	owner, name, err := GetOwnerRepo(repo)
	if err != nil {
		return nil, err
	}

	releaseURL := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s",
		client.apiURL, owner, name, url.PathEscape(version))

	var release Release
	if err := client.fetchJSON(ctx, releaseURL, &release); err != nil {
		return nil, fmt.Errorf("fetching release %s@%s: %w", repo, version, err)
	}

	return &release, nil
}

// SelectAsset returns the first asset, in release order, whose name matches
// the glob pattern.
func SelectAsset(release *Release, pattern string) (*Asset, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	for i := range release.Assets {
		if matched, _ := path.Match(pattern, release.Assets[i].Name); matched {
			return &release.Assets[i], nil
		}
	}

	return nil, fmt.Errorf("%w %q in release %s", ErrNoMatchingAsset, pattern, release.TagName)
}

// Fetch downloads the asset matching pattern from the release tagged version
// into destDir and returns the downloaded file path. An existing file with the
// same name is overwritten.
func (client *Client) Fetch(ctx context.Context, version, repo, pattern, destDir string) (string, error) {
	release, err := client.GetReleaseByTag(ctx, repo, version)
	if err != nil {
		return "", err
	}

	asset, err := SelectAsset(release, pattern)
	if err != nil {
		return "", err
	}

	return client.DownloadAsset(ctx, asset, destDir)
}

// DownloadAsset downloads asset into destDir. The body is written to a
// temporary file that is renamed into place once complete.
func (client *Client) DownloadAsset(ctx context.Context, asset *Asset, destDir string) (string, error) {
	name := filepath.Base(asset.Name)
	if name == "." || name == string(filepath.Separator) || name != asset.Name {
		return "", fmt.Errorf("%w: unsafe asset name %q", ErrHTTPRequest, asset.Name)
	}

	req, err := client.newRequest(ctx, asset.BrowserDownloadURL, "application/octet-stream")
	if err != nil {
		return "", err
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", asset.BrowserDownloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %d for %s", ErrHTTPRequest, resp.StatusCode, asset.BrowserDownloadURL)
	}

	destPath := filepath.Join(destDir, name)

	tempFile, err := os.CreateTemp(destDir, fmt.Sprintf(".%s.tmp-*", name))
	if err != nil {
		return "", fmt.Errorf("creating temp file in %s: %w", destDir, err)
	}

	tempPath := tempFile.Name()

	defer func() {
		tempFile.Close()

		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		return "", fmt.Errorf("writing file %s: %w", destPath, err)
	}

	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, downloadFilePermission); err != nil {
		return "", fmt.Errorf("setting permissions on %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		return "", fmt.Errorf("renaming temp file to %s: %w", destPath, err)
	}

	return destPath, nil
}

// newRequest builds an authenticated GET request.
func (client *Client) newRequest(ctx context.Context, target, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("X-Github-Api-Version", APIVersion)
	req.Header.Set("Accept", accept)

	if client.userAgent != "" {
		req.Header.Set("User-Agent", client.userAgent)
	}

	if client.authToken != "" && client.sendsToken(req.URL) {
		req.Header.Set("Authorization", "Bearer "+client.authToken)
	}

	return req, nil
}

// sendsToken reports whether the token may be attached to a request for target.
// Tokens only go to the configured API host and github.com.
func (client *Client) sendsToken(target *url.URL) bool {
	if api, err := url.Parse(client.apiURL); err == nil && api.Host == target.Host {
		return true
	}

	return target.Host == "github.com" || strings.HasSuffix(target.Host, ".github.com")
}

// fetchJSON fetches JSON from a URL and decodes it into the result.
func (client *Client) fetchJSON(ctx context.Context, target string, result any) error {
	req, err := client.newRequest(ctx, target, "application/vnd.github.v3+json")
	if err != nil {
		return err
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrReleaseNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %d (failed to read body: %w)", ErrHTTPRequest, resp.StatusCode, err)
		}

		return fmt.Errorf("%w: %d %s", ErrHTTPRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// GetToken returns the current auth token (for testing).
func (client *Client) GetToken() string {
	return client.authToken
}
