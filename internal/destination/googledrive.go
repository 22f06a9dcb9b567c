package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

const driveUploadBaseURL = "https://www.googleapis.com/upload/drive/v3"

// GoogleDrive uploads through the Drive multipart endpoint. Public config:
// optional folder_id; the access token comes decrypted from the OAuth
// manager.
type GoogleDrive struct {
	http    *http.Client
	baseURL string
	logger  zerolog.Logger
}

func NewGoogleDrive(cfg *config.Config, logger zerolog.Logger) *GoogleDrive {
	return &GoogleDrive{
		http:    &http.Client{Timeout: cfg.HTTPClientTimeout},
		baseURL: driveUploadBaseURL,
		logger:  logger.With().Str("component", "googledrive-client").Logger(),
	}
}

func (c *GoogleDrive) Upload(ctx context.Context, out *pipeline.Output, dst *model.Destination, creds *model.Credentials) error {
	if creds.AccessToken == "" {
		return &Error{Op: "googledrive upload", Err: fmt.Errorf("no access token")}
	}

	body, boundary, err := multipartBody(out, creds.Public["folder_id"])
	if err != nil {
		return &Error{Op: "googledrive upload", Err: err}
	}

	uploadURL := c.baseURL + "/files?uploadType=multipart&fields=id"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return &Error{Op: "googledrive upload", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "multipart/related; boundary="+boundary)

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: "googledrive upload", Err: err, Transient: true}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return &Error{Op: "googledrive upload", Status: resp.StatusCode}
	}

	c.logger.Info().
		Str("name", out.Path).
		Int64("size", out.Size).
		Msg("googledrive upload complete")
	return nil
}

// multipartBody builds the two-part multipart/related payload Drive expects:
// a JSON metadata part followed by the file content part.
func multipartBody(out *pipeline.Output, folderID string) (*bytes.Buffer, string, error) {
	meta := map[string]any{"name": out.Path}
	if folderID != "" {
		meta["parents"] = []string{folderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("marshal file metadata: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return nil, "", err
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", contentType(out.Format))
	part, err = w.CreatePart(fileHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(out.Content); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.Boundary(), nil
}
