package s3

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"S3Joiner/internal/objstore"
)

const (
	MinPartSizeMB    = 5
	MinPartSizeBytes = MinPartSizeMB * 1024 * 1024
)

type Options struct {
	Endpoint                string
	Region                  string
	AccessKey               string
	SecretKey               string
	Bucket                  string
	Prefix                  string
	PathStyle               bool
	DisableRequestChecksums bool
	// UnsignedPayload skips payload hashing for seekable bodies too. Non-seekable
	// bodies are always sent unsigned.
	UnsignedPayload    bool
	InsecureSkipVerify bool
	PartSizeMB         int
}

type Client struct {
	client          *s3.Client
	bucket          string
	prefix          string
	unsignedPayload bool
	partSize        int64
}

// New builds a client. With an endpoint or static keys it talks to an
// S3-compatible service directly; otherwise it uses the default AWS credential
// chain (environment, shared config, instance role).
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}

	httpClient := http.DefaultClient
	if opts.InsecureSkipVerify {
		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	var cfg aws.Config
	if opts.Endpoint == "" && opts.AccessKey == "" {
		var err error
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
	} else {
		cfg = aws.Config{
			Region:      opts.Region,
			Credentials: credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		}
	}

	var baseEndpoint *string
	if opts.Endpoint != "" {
		endpointURL, err := url.Parse(strings.TrimSpace(opts.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("s3 endpoint: %w", err)
		}
		if endpointURL.Scheme == "" {
			endpointURL, err = url.Parse("https://" + strings.TrimSpace(opts.Endpoint))
			if err != nil {
				return nil, fmt.Errorf("s3 endpoint: %w", err)
			}
		}
		baseEndpoint = aws.String(endpointURL.String())
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = baseEndpoint
		o.UsePathStyle = opts.PathStyle
		o.HTTPClient = httpClient
		if opts.DisableRequestChecksums {
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})

	partSize := int64(opts.PartSizeMB) * 1024 * 1024
	if partSize < MinPartSizeBytes {
		partSize = MinPartSizeBytes
	}

	return &Client{
		client:          client,
		bucket:          opts.Bucket,
		prefix:          strings.Trim(opts.Prefix, "/"),
		unsignedPayload: opts.UnsignedPayload,
		partSize:        partSize,
	}, nil
}

// Key maps a relative key to the full bucket key under the configured prefix.
// A trailing slash on relative is preserved so directory-style prefixes keep
// matching only their children.
func (c *Client) Key(relative string) string {
	trailing := strings.HasSuffix(relative, "/")
	relative = strings.Trim(relative, "/")
	if c.prefix == "" {
		if trailing && relative != "" {
			return relative + "/"
		}
		return relative
	}
	full := path.Join(c.prefix, relative)
	if trailing || relative == "" {
		full += "/"
	}
	return full
}

// Relative strips the configured prefix from a full bucket key.
func (c *Client) Relative(fullKey string) string {
	if c.prefix == "" {
		return fullKey
	}
	return strings.TrimPrefix(fullKey, c.prefix+"/")
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) Prefix() string {
	return c.prefix
}

// PutObject uploads body with its declared length. A body that cannot seek
// (the joined stream) is sent with an unsigned payload, because SigV4 would
// otherwise need to read it twice to hash it, which fails on http endpoints.
func (c *Client) PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error {
	var optFns []func(*s3.Options)
	if _, seekable := body.(io.Seeker); c.unsignedPayload || !seekable {
		optFns = append(optFns, s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	}
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.Key(key)),
		Body:          body,
		ContentLength: aws.Int64(contentLength),
	}, optFns...)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// UploadStream uploads a body of unknown length using a multipart upload.
func (c *Client) UploadStream(ctx context.Context, key string, body io.Reader) error {
	return c.UploadMultipart(ctx, key, body, c.partSize)
}

func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.Key(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("get %s: %w", key, objstore.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.Key(key)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// HeadObject returns the object's last-modified time, or nil when it does not exist.
func (c *Client) HeadObject(ctx context.Context, key string) (*time.Time, error) {
	out, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.Key(key)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, fmt.Errorf("head %s: %w", key, err)
	}
	if out.LastModified == nil {
		now := time.Now()
		return &now, nil
	}
	return out.LastModified, nil
}

// ListObjects lists every object whose key starts with prefix, draining all pages.
// Returned keys are relative to the client prefix.
func (c *Client) ListObjects(ctx context.Context, prefix string, maxKeys int32) ([]objstore.Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.listPrefix(prefix)),
	}
	if maxKeys > 0 {
		input.MaxKeys = aws.Int32(maxKeys)
	}
	var objects []objstore.Object
	paginator := s3.NewListObjectsV2Paginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			o := objstore.Object{
				Key:  c.Relative(*obj.Key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}
		if maxKeys > 0 && int32(len(objects)) >= maxKeys {
			objects = objects[:maxKeys]
			break
		}
	}
	return objects, nil
}

// listPrefix keeps prefix as a raw key prefix: kinesis-output/20211213 must
// match kinesis-output/20211213-part-0-1 as well as kinesis-output/20211213/part-0-1.
func (c *Client) listPrefix(prefix string) string {
	if c.prefix == "" {
		return prefix
	}
	return c.prefix + "/" + strings.TrimPrefix(prefix, "/")
}

func (c *Client) CreateBucket(ctx context.Context) error {
	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Client() *s3.Client {
	return c.client
}

var _ objstore.Storage = (*Client)(nil)
