package pipeline

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/model"
	"github.com/feedline/feedline/internal/retry"
)

// DataSet maps an endpoint name ("orders", "products") to the records
// extracted from it. Stages consume and produce whole data sets; a stage
// never emits a partial result.
type DataSet map[string][]map[string]any

// Output is a formatted export file ready for upload.
type Output struct {
	Path    string
	Format  string
	Size    int64
	Content []byte
}

// SourceClient fetches records from an external API. Implementations own
// their auth and rate-limit handling.
type SourceClient interface {
	Fetch(ctx context.Context, src *model.Source, endpoint string, fields []string) ([]map[string]any, error)
}

// Converter serializes a data set into one output file.
type Converter interface {
	Convert(data DataSet, baseName string) (*Output, error)
}

// ConverterRegistry resolves a converter by file format name.
type ConverterRegistry interface {
	Converter(format string) (Converter, bool)
}

// Uploader pushes a formatted output to a destination using already
// decrypted credentials.
type Uploader interface {
	Upload(ctx context.Context, out *Output, dst *model.Destination, creds *model.Credentials) error
}

// CredentialSource hands out momentary decrypted credentials, refreshing
// ahead of expiry first.
type CredentialSource interface {
	DecryptedCredentials(ctx context.Context, destinationID string) (*model.Credentials, error)
}

// retryableError is implemented by destination errors whose next attempt may
// succeed (network failures, 5xx, 429).
type retryableError interface {
	Retryable() bool
}

// unauthorizedError is implemented by destination errors that mean the
// credential itself was rejected.
type unauthorizedError interface {
	Unauthorized() bool
}

// Pipeline runs the five export stages. Stages are strictly ordered within a
// run; each consumes the previous stage's full output.
type Pipeline struct {
	source      SourceClient
	converters  ConverterRegistry
	uploader    Uploader
	credentials CredentialSource
	retryPolicy retry.Policy
	logger      zerolog.Logger
}

func New(source SourceClient, converters ConverterRegistry, uploader Uploader, credentials CredentialSource, retryPolicy retry.Policy, logger zerolog.Logger) *Pipeline {
	retryPolicy.Retryable = retryableUpload
	return &Pipeline{
		source:      source,
		converters:  converters,
		uploader:    uploader,
		credentials: credentials,
		retryPolicy: retryPolicy,
		logger:      logger.With().Str("component", "pipeline").Logger(),
	}
}

func retryableUpload(err error) bool {
	var re retryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return false
}

// Extract fetches the source's selected endpoints and fields. Any source
// client failure fails the stage; the client owns its own retries.
func (p *Pipeline) Extract(ctx context.Context, src *model.Source) (DataSet, error) {
	data := make(DataSet, len(src.Endpoints))
	for endpoint, fields := range src.Endpoints {
		records, err := p.source.Fetch(ctx, src, endpoint, fields)
		if err != nil {
			return nil, &ExtractionError{Endpoint: endpoint, Err: err}
		}
		data[endpoint] = records
		p.logger.Debug().
			Str("endpoint", endpoint).
			Int("records", len(records)).
			Msg("endpoint extracted")
	}
	return data, nil
}

// Upload resolves credentials and pushes the output. Transient destination
// failures are retried by the shared policy; an authorization failure is
// fatal and surfaces as reauthorization required.
func (p *Pipeline) Upload(ctx context.Context, out *Output, dst *model.Destination) error {
	creds, err := p.credentials.DecryptedCredentials(ctx, dst.ID)
	if err != nil {
		return &DestinationError{Destination: dst.Name, Reason: "resolve credentials", Err: err}
	}

	err = p.retryPolicy.Do(ctx, func(ctx context.Context) error {
		return p.uploader.Upload(ctx, out, dst, creds)
	})
	if err != nil {
		var ue unauthorizedError
		if errors.As(err, &ue) && ue.Unauthorized() {
			return &DestinationError{Destination: dst.Name, Reason: "reauthorization required", Err: err}
		}
		return &DestinationError{Destination: dst.Name, Reason: "upload failed", Err: err}
	}

	p.logger.Info().
		Str("destination", dst.Name).
		Str("path", out.Path).
		Int64("size", out.Size).
		Msg("output uploaded")
	return nil
}

// Format serializes the data set with the converter registered for the file
// format. An unregistered format is a configuration defect.
func (p *Pipeline) Format(data DataSet, fileFormat, baseName string) (*Output, error) {
	conv, ok := p.converters.Converter(fileFormat)
	if !ok {
		return nil, &FormatError{Format: fileFormat}
	}
	out, err := conv.Convert(data, baseName)
	if err != nil {
		return nil, &FormatError{Format: fileFormat, Err: err}
	}
	if out.Size == 0 {
		out.Size = int64(len(out.Content))
	}
	return out, nil
}

// RecordCount is the total number of records across all endpoints.
func (d DataSet) RecordCount() int {
	n := 0
	for _, records := range d {
		n += len(records)
	}
	return n
}
