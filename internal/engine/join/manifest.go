package join

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"S3Joiner/internal/objstore"
	"S3Joiner/internal/s3"
)

// Manifest records one joined output. It is written next to the output under
// manifests/<job>/<YYYYMMDD>.json once the upload has succeeded.
type Manifest struct {
	Job         string    `json:"job"`
	Date        string    `json:"date"`
	Key         string    `json:"key"`
	InputPrefix string    `json:"input_prefix"`
	Sources     []string  `json:"sources"`
	Objects     int       `json:"objects"`
	Size        int64     `json:"size"`
	StoredSize  int64     `json:"stored_size"`
	Checksum    string    `json:"checksum"`
	Compression string    `json:"compression,omitempty"`
	Host        string    `json:"host"`
	CreatedAt   time.Time `json:"created_at"`
}

type LatestPointer struct {
	Date string `json:"date"`
	Key  string `json:"key"`
}

func putJSON(ctx context.Context, w objstore.Writer, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return w.PutObject(ctx, key, bytes.NewReader(body), int64(len(body)))
}

func getJSON(ctx context.Context, o objstore.Opener, key string, v any) error {
	rc, err := o.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func WriteManifest(ctx context.Context, w objstore.Writer, m Manifest) error {
	return putJSON(ctx, w, s3.ManifestKey(m.Job, m.Date), m)
}

func WriteLatest(ctx context.Context, w objstore.Writer, job, date, outputKey string) error {
	return putJSON(ctx, w, s3.LatestKey(job), LatestPointer{Date: date, Key: outputKey})
}

// ReadLatest returns the latest pointer of job. A missing pointer is reported
// as objstore.ErrNotFound.
func ReadLatest(ctx context.Context, o objstore.Opener, job string) (*LatestPointer, error) {
	var p LatestPointer
	if err := getJSON(ctx, o, s3.LatestKey(job), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func ReadManifest(ctx context.Context, o objstore.Opener, job, date string) (*Manifest, error) {
	return ReadManifestByKey(ctx, o, s3.ManifestKey(job, date))
}

func ReadManifestByKey(ctx context.Context, o objstore.Opener, manifestKey string) (*Manifest, error) {
	var m Manifest
	if err := getJSON(ctx, o, manifestKey, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListManifests returns the date stamps of every manifest of job, oldest first.
func ListManifests(ctx context.Context, l objstore.Lister, job string) ([]string, error) {
	objs, err := l.ListObjects(ctx, s3.ManifestsPrefixForJob(job), 0)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(objs))
	for _, o := range objs {
		j, date, ok := s3.ParseManifestKey(o.Key)
		if !ok || j != job {
			continue
		}
		dates = append(dates, date)
	}
	slices.Sort(dates)
	return dates, nil
}
