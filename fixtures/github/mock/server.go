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

// Package mock provides an httptest-backed GitHub releases server used in
// tests for simulating release lookups and asset downloads.
package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	// releasesPrefix is the API path prefix for release lookups.
	releasesPrefix = "/repos/"
	// releaseTagInfix separates owner/name from the tag in release lookups.
	releaseTagInfix = "/releases/tags/"
	// downloadInfix separates owner/name from tag/asset in download paths.
	downloadInfix = "/releases/download/"
)

type (
	// Server is a mock GitHub releases API and download host.
	Server struct {
		server   *httptest.Server
		releases map[string]*release
		requests atomic.Int64
		mu       sync.RWMutex
	}

	// release holds the ordered assets registered for one repo@tag.
	release struct {
		assets  map[string][]byte
		tag     string
		repo    string
		ordered []string
	}

	// assetResponse mirrors the GitHub asset payload.
	assetResponse struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	}

	// releaseResponse mirrors the GitHub release payload.
	releaseResponse struct {
		TagName string          `json:"tag_name"`
		Assets  []assetResponse `json:"assets"`
	}
)

// NewServer creates a new mock release server.
func NewServer() *Server {
	srv := &Server{
		releases: make(map[string]*release),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(releasesPrefix, srv.handleRelease)
	mux.HandleFunc("/", srv.handleDownload)

	srv.server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, req *http.Request) {
		srv.requests.Add(1)
		mux.ServeHTTP(writer, req)
	}))

	return srv
}

// URL returns the mock server URL.
func (server *Server) URL() string {
	return server.server.URL
}

// Close shuts down the mock server.
func (server *Server) Close() {
	server.server.Close()
}

// Client returns the HTTP client for the mock server.
func (server *Server) Client() *http.Client {
	return server.server.Client()
}

// Requests returns how many requests the server has received.
func (server *Server) Requests() int {
	return int(server.requests.Load())
}

// AddRelease registers an empty release for repo ("owner/name") at tag.
func (server *Server) AddRelease(repo, tag string) {
	server.mu.Lock()
	defer server.mu.Unlock()

	server.releaseLocked(repo, tag)
}

// AddAsset attaches an asset to the release for repo at tag, creating the
// release when needed. Assets are listed in registration order.
func (server *Server) AddAsset(repo, tag, name string, content []byte) {
	server.mu.Lock()
	defer server.mu.Unlock()

	rel := server.releaseLocked(repo, tag)
	if _, ok := rel.assets[name]; !ok {
		rel.ordered = append(rel.ordered, name)
	}

	rel.assets[name] = content
}

// AssetURL returns the download URL of a registered asset.
func (server *Server) AssetURL(repo, tag, name string) string {
	return fmt.Sprintf("%s/%s%s%s/%s", server.URL(), repo, downloadInfix, tag, name)
}

// releaseLocked returns the release for repo@tag, creating it if needed.
func (server *Server) releaseLocked(repo, tag string) *release {
	key := repo + "@" + tag

	rel, ok := server.releases[key]
	if !ok {
		rel = &release{
			repo:   repo,
			tag:    tag,
			assets: make(map[string][]byte),
		}
		server.releases[key] = rel
	}

	return rel
}

// handleRelease serves /repos/{owner}/{name}/releases/tags/{tag}.
func (server *Server) handleRelease(writer http.ResponseWriter, req *http.Request) {
	repo, tag, ok := strings.Cut(strings.TrimPrefix(req.URL.Path, releasesPrefix), releaseTagInfix)
	if !ok {
		http.NotFound(writer, req)
		return
	}

	server.mu.RLock()
	defer server.mu.RUnlock()

	rel, ok := server.releases[repo+"@"+tag]
	if !ok {
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusNotFound)

		_, _ = writer.Write([]byte(`{"message":"Not Found"}`)) //nolint:errcheck // we'll ignore mocked errors

		return
	}

	payload := releaseResponse{
		TagName: rel.tag,
		Assets:  make([]assetResponse, 0, len(rel.ordered)),
	}

	for _, name := range rel.ordered {
		payload.Assets = append(payload.Assets, assetResponse{
			Name:               name,
			BrowserDownloadURL: server.AssetURL(rel.repo, rel.tag, name),
			Size:               int64(len(rel.assets[name])),
		})
	}

	writer.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(writer).Encode(payload) //nolint:errcheck,errchkjson // we'll ignore mocked errors
}

// handleDownload serves /{owner}/{name}/releases/download/{tag}/{asset}.
func (server *Server) handleDownload(writer http.ResponseWriter, req *http.Request) {
	repo, rest, ok := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), downloadInfix)
	if !ok {
		http.NotFound(writer, req)
		return
	}

	tag, name, ok := strings.Cut(rest, "/")
	if !ok {
		http.NotFound(writer, req)
		return
	}

	server.mu.RLock()
	rel, found := server.releases[repo+"@"+tag]

	var content []byte
	if found {
		content, found = rel.assets[name]
	}
	server.mu.RUnlock()

	if !found {
		http.NotFound(writer, req)
		return
	}

	writer.Header().Set("Content-Type", "application/octet-stream")

	_, _ = writer.Write(content) //nolint:errcheck // we'll ignore mocked errors
}
