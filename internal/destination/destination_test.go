package destination

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

func testOutput() *pipeline.Output {
	content := []byte("id,total_price\n1001,19.90\n")
	return &pipeline.Output{
		Path:    "orders-20260309.csv",
		Format:  model.FormatCSV,
		Size:    int64(len(content)),
		Content: content,
	}
}

func testCfg() *config.Config {
	return &config.Config{HTTPClientTimeout: 5 * time.Second}
}

func TestError_Classification(t *testing.T) {
	cases := []struct {
		name         string
		err          *Error
		retryable    bool
		unauthorized bool
	}{
		{"config", &Error{Op: "x", Err: errors.New("missing bucket")}, false, false},
		{"transport", &Error{Op: "x", Err: errors.New("dial"), Transient: true}, true, false},
		{"unauthorized", &Error{Op: "x", Status: 401}, false, true},
		{"forbidden", &Error{Op: "x", Status: 403}, false, true},
		{"rate_limited", &Error{Op: "x", Status: 429}, true, false},
		{"server_error", &Error{Op: "x", Status: 503}, true, false},
		{"not_found", &Error{Op: "x", Status: 404}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.retryable, tc.err.Retryable())
			assert.Equal(t, tc.unauthorized, tc.err.Unauthorized())
		})
	}
}

func TestClients_UnsupportedType(t *testing.T) {
	c := NewClients(testCfg(), zerolog.Nop())
	err := c.Upload(context.Background(), testOutput(), &model.Destination{Type: "FTP"}, &model.Credentials{})
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.Contains(t, err.Error(), "unsupported destination type")
}

func TestOneDrive_UploadsToFolderPath(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"item-1"}`))
	}))
	defer srv.Close()

	c := NewOneDrive(testCfg(), zerolog.Nop())
	c.baseURL = srv.URL
	out := testOutput()
	creds := &model.Credentials{
		AccessToken: "tok-123",
		Public:      map[string]string{"folder_path": "/exports"},
	}

	err := c.Upload(context.Background(), out, &model.Destination{Type: model.DestinationOneDrive}, creds)
	require.NoError(t, err)
	assert.Equal(t, "/me/drive/root:/exports/orders-20260309.csv:/content", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "text/csv", gotType)
	assert.Equal(t, out.Content, gotBody)
}

func TestOneDrive_StatusMapsToError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOneDrive(testCfg(), zerolog.Nop())
	c.baseURL = srv.URL

	err := c.Upload(context.Background(), testOutput(), &model.Destination{}, &model.Credentials{AccessToken: "tok"})
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.True(t, dErr.Unauthorized())
	assert.False(t, dErr.Retryable())
}

func TestOneDrive_MissingTokenFailsWithoutNetwork(t *testing.T) {
	c := NewOneDrive(testCfg(), zerolog.Nop())
	c.baseURL = "http://127.0.0.1:1" // must not be contacted

	err := c.Upload(context.Background(), testOutput(), &model.Destination{}, &model.Credentials{})
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.False(t, dErr.Retryable())
}

func TestGoogleDrive_MultipartUpload(t *testing.T) {
	var gotMeta map[string]any
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		mr := multipart.NewReader(r.Body, params["boundary"])

		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(metaPart).Decode(&gotMeta))

		filePart, err := mr.NextPart()
		require.NoError(t, err)
		gotFile, _ = io.ReadAll(filePart)

		w.Write([]byte(`{"id":"file-1"}`))
	}))
	defer srv.Close()

	c := NewGoogleDrive(testCfg(), zerolog.Nop())
	c.baseURL = srv.URL
	out := testOutput()
	creds := &model.Credentials{
		AccessToken: "tok-456",
		Public:      map[string]string{"folder_id": "folder-9"},
	}

	err := c.Upload(context.Background(), out, &model.Destination{Type: model.DestinationGoogleDrive}, creds)
	require.NoError(t, err)
	assert.Equal(t, "orders-20260309.csv", gotMeta["name"])
	assert.Equal(t, []any{"folder-9"}, gotMeta["parents"])
	assert.Equal(t, out.Content, gotFile)
}

func TestGoogleDrive_RateLimitIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGoogleDrive(testCfg(), zerolog.Nop())
	c.baseURL = srv.URL

	err := c.Upload(context.Background(), testOutput(), &model.Destination{}, &model.Credentials{AccessToken: "tok"})
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.True(t, dErr.Retryable())
}

func TestSFTP_MissingConfigIsNotRetryable(t *testing.T) {
	c := NewSFTP(zerolog.Nop())

	err := c.Upload(context.Background(), testOutput(), &model.Destination{Type: model.DestinationSFTP},
		&model.Credentials{Public: map[string]string{"host": "sftp.example.com"}})
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.False(t, dErr.Retryable())
	assert.Contains(t, err.Error(), "host or username")
}

func TestSFTP_DialRetryable(t *testing.T) {
	assert.False(t, dialRetryable(errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain")))
	assert.True(t, dialRetryable(errors.New("dial tcp 10.0.0.5:22: connect: connection refused")))
	assert.True(t, dialRetryable(errors.New("dial tcp 10.0.0.5:22: i/o timeout")))
}

func TestS3_MissingBucketIsNotRetryable(t *testing.T) {
	c := NewS3(zerolog.Nop())

	err := c.Upload(context.Background(), testOutput(), &model.Destination{Type: model.DestinationS3},
		&model.Credentials{ClientSecret: "secret", Public: map[string]string{"access_key_id": "AKIA"}})
	var dErr *Error
	require.ErrorAs(t, err, &dErr)
	assert.False(t, dErr.Retryable())
	assert.Contains(t, err.Error(), "missing bucket")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType(model.FormatCSV))
	assert.Equal(t, "application/json", contentType(model.FormatJSON))
	assert.Equal(t, "application/xml", contentType(model.FormatXML))
	assert.Equal(t, "application/octet-stream", contentType("bin"))
}
