package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telcochurn/pkg/data"
	"telcochurn/pkg/pipeline"
)

func trainSmall(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	var b strings.Builder
	b.WriteString("Latitude;Longitude;Gender;Senior Citizen;Partner;Dependents;Tenure Months;" +
		"Phone Service;Internet Service;Online Security;Tech Support;Contract;Payment Method;" +
		"Monthly Charges;Total Charges;Churn Label\n")
	for i := 0; i < 40; i++ {
		contract, tenure, churn := "Two year", 40+i, "No"
		if i%2 == 0 {
			contract, tenure = "Month-to-month", 1+i%6
			if i%8 != 0 {
				churn = "Yes"
			}
		}
		fmt.Fprintf(&b, "34,1;-118,2;Male;No;No;No;%d;Yes;DSL;No;No;%s;Mailed check;%d,5;%d,5;%s\n",
			tenure, contract, 30+i, (30+i)*tenure, churn)
	}
	tbl, err := data.Parse(strings.NewReader(b.String()))
	require.NoError(t, err)
	p, err := pipeline.Train(tbl)
	require.NoError(t, err)
	return p
}

// roundTrip exercises the Store contract shared by every backend.
func roundTrip(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing.gob")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "raw.bin", []byte("v1")))
	require.NoError(t, s.Put(ctx, "raw.bin", []byte("v2")))
	got, err := s.Get(ctx, "raw.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	p := trainSmall(t)
	require.NoError(t, Save(ctx, s, DefaultName, p))
	q, err := Load(ctx, s, DefaultName)
	require.NoError(t, err)
	assert.Equal(t, p.Meta.ID, q.Meta.ID)
	assert.Equal(t, p.Model.W, q.Model.W)

	require.NoError(t, s.Put(ctx, "corrupt.gob", []byte("garbage")))
	_, err = Load(ctx, s, "corrupt.gob")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	roundTrip(t, s)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temp file %s left behind", e.Name())
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedisStore(mr.Addr(), "", 0, "churn:")
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	roundTrip(t, s)
	assert.True(t, mr.Exists("churn:"+DefaultName))
	assert.Contains(t, s.Location(DefaultName), "churn:"+DefaultName)
}

func TestPingAndClose(t *testing.T) {
	ctx := context.Background()

	file := NewFileStore(t.TempDir())
	assert.NoError(t, Ping(ctx, file))
	assert.NoError(t, Close(file))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedisStore(mr.Addr(), "", 0, "churn:")
	require.NoError(t, Ping(ctx, s))
	require.NoError(t, Close(s))

	// the client pool is released
	assert.Error(t, Ping(ctx, s))
	_, err = s.Get(ctx, DefaultName)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

// fakeS3 serves path-style GetObject and PutObject from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = b
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		b, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(b)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3Store(context.Background(), S3Options{
		Bucket:    "models",
		Prefix:    "churn/",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)

	roundTrip(t, s)
	fake.mu.Lock()
	_, ok := fake.objects["/models/churn/"+DefaultName]
	fake.mu.Unlock()
	assert.True(t, ok)
	assert.Equal(t, "s3://models/churn/"+DefaultName, s.Location(DefaultName))
}

func TestS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Options{})
	assert.Error(t, err)
}
