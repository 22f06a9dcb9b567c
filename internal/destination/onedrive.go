package destination

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// OneDrive uploads through the Microsoft Graph simple-upload endpoint.
// Public config: folder_path; the access token comes decrypted from the
// OAuth manager.
type OneDrive struct {
	http    *http.Client
	baseURL string
	logger  zerolog.Logger
}

func NewOneDrive(cfg *config.Config, logger zerolog.Logger) *OneDrive {
	return &OneDrive{
		http:    &http.Client{Timeout: cfg.HTTPClientTimeout},
		baseURL: graphBaseURL,
		logger:  logger.With().Str("component", "onedrive-client").Logger(),
	}
}

func (c *OneDrive) Upload(ctx context.Context, out *pipeline.Output, dst *model.Destination, creds *model.Credentials) error {
	if creds.AccessToken == "" {
		return &Error{Op: "onedrive upload", Err: fmt.Errorf("no access token")}
	}

	remote := path.Join(creds.Public["folder_path"], out.Path)
	uploadURL := fmt.Sprintf("%s/me/drive/root:%s:/content", c.baseURL, escapeDrivePath(remote))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(out.Content))
	if err != nil {
		return &Error{Op: "onedrive upload", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", contentType(out.Format))

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: "onedrive upload", Err: err, Transient: true}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &Error{Op: "onedrive upload", Status: resp.StatusCode}
	}

	c.logger.Info().
		Str("remote", remote).
		Int64("size", out.Size).
		Msg("onedrive upload complete")
	return nil
}

// escapeDrivePath escapes each segment while keeping the path separators
// Graph expects.
func escapeDrivePath(p string) string {
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return (&url.URL{Path: p}).EscapedPath()
}
