package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HubOptions configures a HubStore.
type HubOptions struct {
	BaseURL    string
	Revision   string
	Token      string
	HTTPClient *http.Client
}

// HubStore reads public model repositories from a Hugging Face Hub. The
// listing prefix is the repository id, for example
// "sentence-transformers/all-MiniLM-L6-v2", and entry names are
// "<repo>/<file>".
type HubStore struct {
	baseURL  string
	revision string
	token    string
	client   *http.Client
}

// NewHubStore returns a read-only store over the Hub HTTP API.
func NewHubStore(opts HubOptions) *HubStore {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://huggingface.co"
	}
	if opts.Revision == "" {
		opts.Revision = "main"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &HubStore{
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		revision: opts.Revision,
		token:    opts.Token,
		client:   opts.HTTPClient,
	}
}

type hubModelInfo struct {
	Siblings []struct {
		RFilename string `json:"rfilename"`
		Size      int64  `json:"size"`
	} `json:"siblings"`
}

// List returns the files of the repository named by prefix.
func (s *HubStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	repo := strings.Trim(prefix, "/")
	u := fmt.Sprintf("%s/api/models/%s/revision/%s?blobs=true", s.baseURL, repo, url.PathEscape(s.revision))
	resp, err := s.get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info hubModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("hub: decode model info for %s: %w", repo, err)
	}
	entries := make([]Entry, 0, len(info.Siblings))
	for _, sib := range info.Siblings {
		entries = append(entries, Entry{Name: repo + "/" + sib.RFilename, Size: sib.Size})
	}
	return entries, nil
}

// Download fetches name, which must be "<repo>/<file>" as returned by List.
func (s *HubStore) Download(ctx context.Context, name string, w io.Writer) error {
	repo, file, err := splitHubName(name)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/%s/resolve/%s/%s", s.baseURL, repo, url.PathEscape(s.revision), file)
	resp, err := s.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("hub: read %s: %w", name, err)
	}
	return nil
}

// Upload is not supported.
func (s *HubStore) Upload(context.Context, string, io.Reader) error {
	return ErrReadOnly
}

func (s *HubStore) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("hub: GET %s: status %d: %s", u, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// splitHubName splits "<owner>/<model>/<path...>" into repo and file. Repos
// without an owner segment are not supported.
func splitHubName(name string) (repo, file string, err error) {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("hub: invalid file name %q", name)
	}
	return parts[0] + "/" + parts[1], parts[2], nil
}
