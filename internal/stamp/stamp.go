// Package stamp writes the version.json file a front-end reads at runtime to
// learn which release, commit and build time it is serving.
package stamp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DescriptorFile is read from the working directory.
	DescriptorFile = "package.json"
	// OutputDir is created under the working directory when missing.
	OutputDir = "public"
	// OutputFile is written inside OutputDir.
	OutputFile = "version.json"

	// DefaultVersion stands in for a missing or falsy descriptor version.
	DefaultVersion = "0.0.0"
	// ShortCommitLen is the length of the abbreviated commit SHA.
	ShortCommitLen = 7
	// DateLayout is ISO 8601 in UTC with millisecond precision.
	DateLayout = "2006-01-02T15:04:05.000Z"
)

// Outcome values recorded on the versionstamp.runs counter.
const (
	OutcomeWritten = "written"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Stamp is the record serialized to version.json. Field order is the key
// order of the output.
type Stamp struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// JSON returns the compact encoding written to disk, without HTML escaping
// or a trailing newline.
func (s Stamp) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, errors.Wrap(err, "encoding stamp")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ShortCommit returns the first ShortCommitLen characters of sha, or all of
// it when shorter.
func ShortCommit(sha string) string {
	r := []rune(sha)
	if len(r) > ShortCommitLen {
		r = r[:ShortCommitLen]
	}
	return string(r)
}

// FormatDate renders t the way version.json consumers expect.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Options holds the inputs of a stamping run. Nothing is read from process
// globals; the caller resolves the working directory and the commit SHA.
type Options struct {
	// Dir is the project directory holding package.json.
	Dir string

	// CommitSHA is the full commit hash, typically $GITHUB_SHA. May be empty.
	CommitSHA string

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger

	// TracerProvider and MeterProvider default to the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Stamper produces version.json for one project directory.
type Stamper struct {
	dir       string
	commitSHA string
	now       func() time.Time
	logger    *slog.Logger

	tracer trace.Tracer
	runs   metric.Int64Counter
}

// New creates a Stamper.
func New(opts Options) *Stamper {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	s := &Stamper{
		dir:       opts.Dir,
		commitSHA: opts.CommitSHA,
		now:       opts.Now,
		logger:    opts.Logger,
		tracer:    opts.TracerProvider.Tracer("versionstamp/stamp"),
	}

	var err error
	s.runs, err = opts.MeterProvider.Meter("versionstamp/stamp").Int64Counter(
		"versionstamp.runs",
		metric.WithDescription("Stamping runs by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		opts.Logger.Warn("failed to create runs counter", slog.String("error", err.Error()))
	}

	return s
}

// DescriptorPath is where Run looks for package.json.
func (s *Stamper) DescriptorPath() string {
	return filepath.Join(s.dir, DescriptorFile)
}

// OutputPath is where Run writes the stamp.
func (s *Stamper) OutputPath() string {
	return filepath.Join(s.dir, OutputDir, OutputFile)
}

// Run reads the descriptor, builds the stamp and writes it, replacing any
// previous file. A missing descriptor returns ErrDescriptorNotFound and
// leaves the filesystem untouched.
func (s *Stamper) Run(ctx context.Context) (Stamp, error) {
	ctx, span := s.tracer.Start(ctx, "stamp.Run")
	defer span.End()

	st, err := s.run(span)
	outcome := OutcomeWritten
	switch {
	case errors.Is(err, ErrDescriptorNotFound):
		outcome = OutcomeSkipped
	case err != nil:
		outcome = OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("versionstamp.outcome", outcome))
	if s.runs != nil {
		s.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	return st, err
}

func (s *Stamper) run(span trace.Span) (Stamp, error) {
	desc, err := LoadDescriptor(s.DescriptorPath())
	if err != nil {
		return Stamp{}, err
	}

	st := Stamp{
		Version: desc.Version,
		Commit:  ShortCommit(s.commitSHA),
		Date:    FormatDate(s.now()),
	}
	span.SetAttributes(
		attribute.String("versionstamp.version", st.Version),
		attribute.String("versionstamp.commit", st.Commit),
	)

	data, err := st.JSON()
	if err != nil {
		return Stamp{}, err
	}

	outDir := filepath.Join(s.dir, OutputDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Stamp{}, errors.Wrapf(err, "creating output directory %s", outDir)
	}

	path := s.OutputPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Stamp{}, errors.Wrapf(err, "writing %s", path)
	}

	s.logger.Info("wrote stamp file",
		slog.String("path", filepath.Join(OutputDir, OutputFile)),
		slog.String("package", desc.Name),
		slog.String("stamp", string(data)),
	)
	return st, nil
}
