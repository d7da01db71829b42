package boundary

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

//go:embed data/lebanon.geojson
var bundledGeometry []byte

// BundledSource is the source name of the geometry shipped with the binary
const BundledSource = "bundled"

// Source fetches the raw boundary document
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// ObjectGetter is the subset of the S3 client used to read the boundary object
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// BytesSource serves an in-memory document
type BytesSource struct {
	Name string
	Data []byte
}

func (s BytesSource) Fetch(ctx context.Context) ([]byte, error) {
	if len(s.Data) == 0 {
		return nil, fmt.Errorf("empty boundary document")
	}
	return s.Data, nil
}

func (s BytesSource) String() string { return s.Name }

// Bundled returns the geometry embedded at build time
func Bundled() Source {
	return BytesSource{Name: BundledSource, Data: bundledGeometry}
}

// FileSource reads the document from the local filesystem
type FileSource struct {
	Path string
}

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	return os.ReadFile(s.Path)
}

func (s FileSource) String() string { return s.Path }

// HTTPSource downloads the document with a GET request
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (s HTTPSource) String() string { return s.URL }

// S3Source reads the document from an S3 object
type S3Source struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

func (s S3Source) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }

// ParseSource resolves a configured location into a Source.
// Accepted forms: "bundled", a filesystem path, file://, http(s):// and s3://bucket/key.
// s3 is only consulted for s3:// locations.
func ParseSource(location string, s3c ObjectGetter) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" || location == BundledSource {
		return Bundled(), nil
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		return FileSource{Path: location}, nil
	}

	switch u.Scheme {
	case "file":
		return FileSource{Path: u.Path}, nil
	case "http", "https":
		return HTTPSource{URL: location}, nil
	case "s3":
		if s3c == nil {
			return nil, fmt.Errorf("s3 client required for %s", location)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 location %q", location)
		}
		return S3Source{Client: s3c, Bucket: u.Host, Key: key}, nil
	default:
		return nil, fmt.Errorf("unsupported boundary source scheme %q", u.Scheme)
	}
}
