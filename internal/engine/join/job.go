package join

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"S3Joiner/internal/config"
	"S3Joiner/internal/objstore"
	"S3Joiner/internal/s3"
)

// JobSpec is the resolved description of one join job.
type JobSpec struct {
	Name         string
	InputPrefix  string
	OutputPrefix string
	OutputExt    string
	// DayOffset is the distance in days between the input date and the output date.
	DayOffset        int
	Compression      string
	CompressionLevel int
	AllowEmpty       bool
}

// SpecFromConfig builds a JobSpec from a validated job config.
func SpecFromConfig(j *config.JobConfig) JobSpec {
	spec := JobSpec{
		Name:         j.Name,
		InputPrefix:  j.InputPrefix,
		OutputPrefix: j.OutputPrefix,
		OutputExt:    j.OutputExt,
		DayOffset:    config.JobDayOffset(j),
		Compression:  j.Compression,
		AllowEmpty:   j.AllowEmpty,
	}
	if spec.InputPrefix == "" {
		spec.InputPrefix = config.DefaultInputPrefix
	}
	if spec.OutputPrefix == "" {
		spec.OutputPrefix = config.DefaultOutputPrefix
	}
	if spec.OutputExt == "" {
		spec.OutputExt = config.DefaultOutputExt
	}
	return spec
}

type RunOptions struct {
	// Now is the run time; the output is named after its date. Defaults to time.Now().UTC().
	Now time.Time
	// Date, when set, selects the input date directly instead of Now minus DayOffset.
	Date     time.Time
	DryRun   bool
	Logger   zerolog.Logger
	Observer func(ObjectEvent)
	Host     string
}

// Plan is what a join would read and write.
type Plan struct {
	Job         string
	InputDate   string
	OutputDate  string
	InputPrefix string
	OutputKey   string
	Objects     []objstore.Object
	TotalSize   int64
}

type Result struct {
	Plan
	DryRun   bool
	Written  int64
	Stored   int64
	Checksum string
	Duration time.Duration
	// SizeDrift lists the objects whose byte count differed from the listing.
	// A run can still succeed when the differences cancel out.
	SizeDrift []string
}

// Dates returns the input and output days of a run.
func Dates(spec JobSpec, opts RunOptions) (input, output time.Time) {
	if !opts.Date.IsZero() {
		input = opts.Date.UTC()
		return input, input.AddDate(0, 0, spec.DayOffset)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	output = now.UTC()
	return output.AddDate(0, 0, -spec.DayOffset), output
}

// BuildPlan lists and orders the input objects of spec. Directory markers and
// the output object itself are never part of a join.
func BuildPlan(ctx context.Context, lister objstore.Lister, spec JobSpec, opts RunOptions) (*Plan, error) {
	inDay, outDay := Dates(spec, opts)
	p := &Plan{
		Job:         spec.Name,
		InputDate:   s3.DateStamp(inDay),
		OutputDate:  s3.DateStamp(outDay),
		InputPrefix: s3.InputPrefix(spec.InputPrefix, inDay),
		OutputKey:   s3.OutputKey(spec.OutputPrefix, outDay, spec.OutputExt) + CompressionExt(spec.Compression),
	}

	listed, err := lister.ListObjects(ctx, p.InputPrefix, 0)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrList, p.InputPrefix, err)
	}
	objects := make([]objstore.Object, 0, len(listed))
	for _, o := range listed {
		if strings.HasSuffix(o.Key, "/") || o.Key == p.OutputKey {
			continue
		}
		objects = append(objects, o)
	}
	SortObjects(objects)
	p.Objects = objects
	p.TotalSize = TotalSize(objects)
	return p, nil
}

func (p *Plan) log(log zerolog.Logger) {
	for i, o := range p.Objects {
		log.Info().Int("index", i).Str("key", o.Key).Str("size", humanize.Comma(o.Size)).Msg("input object")
	}
	log.Info().
		Str("job", p.Job).
		Str("prefix", p.InputPrefix).
		Int("objects", len(p.Objects)).
		Str("total", humanize.Bytes(uint64(p.TotalSize))).
		Msg("join plan")
}

// Run joins the objects under the job's input prefix into its output key,
// then records a manifest and the latest pointer.
func Run(ctx context.Context, store objstore.Storage, spec JobSpec, opts RunOptions) (*Result, error) {
	start := time.Now()
	log := opts.Logger.With().Str("job", spec.Name).Logger()

	plan, err := BuildPlan(ctx, store, spec, opts)
	if err != nil {
		return nil, err
	}
	plan.log(log)
	res := &Result{Plan: *plan, DryRun: opts.DryRun}

	if len(plan.Objects) == 0 && !spec.AllowEmpty {
		return res, fmt.Errorf("%w under %s", ErrNoObjects, plan.InputPrefix)
	}
	if opts.DryRun {
		res.Duration = time.Since(start)
		return res, nil
	}

	observe := func(ev ObjectEvent) {
		if ev.Kind == ObjectClosed && ev.Bytes != ev.Object.Size {
			res.SizeDrift = append(res.SizeDrift, ev.Object.Key)
		}
		if opts.Observer != nil {
			opts.Observer(ev)
		}
	}
	readerOpts := []ReaderOption{WithLogger(log), WithObserver(observe)}
	reader, err := NewReader(ctx, store, plan.Objects, readerOpts...)
	if err != nil {
		return res, err
	}
	defer reader.Close()

	hasher := blake3.New()
	joined := &countingReader{r: io.TeeReader(reader, hasher)}

	if err := upload(ctx, store, spec, plan, joined, &res.Stored); err != nil {
		res.Written = joined.n
		if rerr := reader.Err(); rerr != nil {
			return res, rerr
		}
		if reader.State() == StateExhausted && joined.n != plan.TotalSize {
			return res, errors.Join(fmt.Errorf("%w: read %d, listed %d", ErrSizeMismatch, joined.n, plan.TotalSize), err)
		}
		return res, fmt.Errorf("%w %s: %w", ErrWrite, plan.OutputKey, err)
	}
	res.Written = joined.n
	if res.Written != plan.TotalSize {
		return res, fmt.Errorf("%w: wrote %d, listed %d", ErrSizeMismatch, res.Written, plan.TotalSize)
	}
	res.Checksum = "blake3:" + hex.EncodeToString(hasher.Sum(nil))

	host := opts.Host
	if host == "" {
		host, _ = os.Hostname()
	}
	sources := make([]string, len(plan.Objects))
	for i, o := range plan.Objects {
		sources[i] = o.Key
	}
	m := Manifest{
		Job:         spec.Name,
		Date:        plan.OutputDate,
		Key:         plan.OutputKey,
		InputPrefix: plan.InputPrefix,
		Sources:     sources,
		Objects:     len(plan.Objects),
		Size:        res.Written,
		StoredSize:  res.Stored,
		Checksum:    res.Checksum,
		Host:        host,
		CreatedAt:   time.Now().UTC(),
	}
	if spec.Compression != config.CompressionNone {
		m.Compression = spec.Compression
	}
	if err := WriteManifest(ctx, store, m); err != nil {
		return res, fmt.Errorf("write manifest: %w", err)
	}
	if err := WriteLatest(ctx, store, spec.Name, plan.OutputDate, plan.OutputKey); err != nil {
		return res, fmt.Errorf("write latest pointer: %w", err)
	}

	res.Duration = time.Since(start)
	log.Info().
		Str("key", plan.OutputKey).
		Str("size", humanize.Bytes(uint64(res.Written))).
		Str("checksum", res.Checksum).
		Dur("duration", res.Duration).
		Msg("joined object uploaded")
	return res, nil
}

// upload writes the joined stream. Uncompressed output is sent with its
// declared length; compressed output has no known length and is streamed.
func upload(ctx context.Context, store objstore.Storage, spec JobSpec, plan *Plan, body io.Reader, stored *int64) error {
	switch spec.Compression {
	case "", config.CompressionNone:
		if err := store.PutObject(ctx, plan.OutputKey, body, plan.TotalSize); err != nil {
			return err
		}
		*stored = plan.TotalSize
		return nil
	default:
		cr, err := NewCompressReader(body, spec.Compression, spec.CompressionLevel)
		if err != nil {
			return err
		}
		defer cr.Close()
		counted := &countingReader{r: cr}
		if err := store.UploadStream(ctx, plan.OutputKey, counted); err != nil {
			return err
		}
		*stored = counted.n
		return nil
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
