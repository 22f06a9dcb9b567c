// Package destination implements the upload clients the pipeline pushes
// formatted exports to. OAuth-typed destinations receive already decrypted
// credentials; clients never persist or log them.
package destination

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

// Error is an upload failure. Status carries the remote HTTP status where
// one exists; 0 means a transport or configuration failure.
type Error struct {
	Op     string
	Status int
	Err    error
	// Transient marks status-less failures (network, SSH handshake) whose
	// next attempt may succeed. Configuration failures leave it false.
	Transient bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Configuration
// failures (Status 0 with no transport error) and 4xx responses are not
// retried.
func (e *Error) Retryable() bool {
	if e.Status == 0 {
		return e.Transient
	}
	return e.Status == 429 || e.Status >= 500
}

// Unauthorized reports whether the destination rejected the credential,
// meaning the user must reauthorize.
func (e *Error) Unauthorized() bool {
	return e.Status == 401 || e.Status == 403
}

// Client uploads one formatted output to one destination type.
type Client interface {
	Upload(ctx context.Context, out *pipeline.Output, dst *model.Destination, creds *model.Credentials) error
}

// Clients routes uploads to the client for the destination's type. It
// satisfies pipeline.Uploader.
type Clients struct {
	sftp        *SFTP
	s3          *S3
	onedrive    *OneDrive
	googledrive *GoogleDrive
}

func NewClients(cfg *config.Config, logger zerolog.Logger) *Clients {
	return &Clients{
		sftp:        NewSFTP(logger),
		s3:          NewS3(logger),
		onedrive:    NewOneDrive(cfg, logger),
		googledrive: NewGoogleDrive(cfg, logger),
	}
}

func (c *Clients) Upload(ctx context.Context, out *pipeline.Output, dst *model.Destination, creds *model.Credentials) error {
	switch dst.Type {
	case model.DestinationSFTP:
		return c.sftp.Upload(ctx, out, dst, creds)
	case model.DestinationS3:
		return c.s3.Upload(ctx, out, dst, creds)
	case model.DestinationOneDrive:
		return c.onedrive.Upload(ctx, out, dst, creds)
	case model.DestinationGoogleDrive:
		return c.googledrive.Upload(ctx, out, dst, creds)
	default:
		return &Error{Op: "upload", Err: fmt.Errorf("unsupported destination type %s", dst.Type)}
	}
}
