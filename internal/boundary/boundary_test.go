package boundary

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ calls int }

func (s *failingSource) Fetch(ctx context.Context) ([]byte, error) {
	s.calls++
	return nil, errors.New("connection refused")
}

func (s *failingSource) String() string { return "failing" }

type fakeS3 struct {
	bucket, key string
	body        []byte
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = *params.Bucket, *params.Key
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestServiceFailsClosedBeforeLoad(t *testing.T) {
	svc := NewService(BytesSource{Name: "square", Data: []byte(squareGeoJSON)})

	assert.Equal(t, StatePending, svc.State())
	assert.False(t, svc.Contains(5, 5))
	_, ok := svc.Bound()
	assert.False(t, ok)

	require.NoError(t, svc.Load(context.Background()))
	<-svc.Settled()

	assert.Equal(t, StateReady, svc.State())
	assert.True(t, svc.Contains(5, 5))
	assert.False(t, svc.Contains(-1, 5))
}

func TestServiceLoadFailureIsFatal(t *testing.T) {
	src := &failingSource{}
	svc := NewService(src)

	err := svc.Load(context.Background())
	var loadErr *BoundaryLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "failing", loadErr.Source)
	assert.Equal(t, StateFailed, svc.State())
	assert.False(t, svc.Contains(5, 5))

	// no retry on a second call
	assert.ErrorAs(t, svc.Load(context.Background()), &loadErr)
	assert.Equal(t, 1, src.calls)
}

func TestServiceParseFailure(t *testing.T) {
	svc := NewService(BytesSource{Name: "broken", Data: []byte(`{"type":"Point","coordinates":[1,2]}`)})

	err := svc.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoPolygon)
	assert.Equal(t, StateFailed, svc.State())
}

func TestParseSource(t *testing.T) {
	getter := &fakeS3{}

	tests := []struct {
		location string
		expected string
		wantErr  bool
	}{
		{"", BundledSource, false},
		{"bundled", BundledSource, false},
		{"./data/region.geojson", "./data/region.geojson", false},
		{"file:///etc/region.geojson", "/etc/region.geojson", false},
		{"https://example.com/lb.geojson", "https://example.com/lb.geojson", false},
		{"s3://geo-bucket/boundaries/lb.geojson", "s3://geo-bucket/boundaries/lb.geojson", false},
		{"s3://geo-bucket", "", true},
		{"ftp://example.com/lb.geojson", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			src, err := ParseSource(tt.location, getter)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, src.String())
		})
	}

	_, err := ParseSource("s3://geo-bucket/lb.geojson", nil)
	assert.Error(t, err, "s3 without a client")
}

func TestSourcesFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "square.geojson")
		require.NoError(t, os.WriteFile(path, []byte(squareGeoJSON), 0o600))

		svc := NewService(FileSource{Path: path})
		require.NoError(t, svc.Load(ctx))
		assert.True(t, svc.Contains(5, 5))
	})

	t.Run("http", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(squareGeoJSON))
		}))
		defer srv.Close()

		svc := NewService(HTTPSource{URL: srv.URL})
		require.NoError(t, svc.Load(ctx))
		assert.True(t, svc.Contains(5, 5))
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		svc := NewService(HTTPSource{URL: srv.URL})
		assert.Error(t, svc.Load(ctx))
	})

	t.Run("s3", func(t *testing.T) {
		getter := &fakeS3{body: []byte(squareGeoJSON)}
		src, err := ParseSource("s3://geo-bucket/lb.geojson", getter)
		require.NoError(t, err)

		svc := NewService(src)
		require.NoError(t, svc.Load(ctx))
		assert.Equal(t, "geo-bucket", getter.bucket)
		assert.Equal(t, "lb.geojson", getter.key)
		assert.True(t, svc.Contains(5, 5))
	})
}
