package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	cloud "github.com/puertonuevo/portal-api/pkg/cloudinary"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func setupServiceDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}

type testFile struct {
	name        string
	contentType string
	content     []byte
}

func fileHeaders(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, file.name))
		if file.contentType != "" {
			header.Set("Content-Type", file.contentType)
		}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

// memoryStorage keeps uploaded objects in memory. failOnUpload makes the Nth
// upload attempt (1-based) fail.
type memoryStorage struct {
	mu           sync.Mutex
	objects      map[string][]byte
	attempts     int
	uploads      []string
	deletes      []string
	failOnUpload int
	deleteErr    error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Upload(ctx context.Context, path string, reader io.Reader) (cloud.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failOnUpload == m.attempts {
		return cloud.StoredObject{}, errors.New("storage unavailable")
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		return cloud.StoredObject{}, err
	}
	m.objects[path] = payload
	m.uploads = append(m.uploads, path)
	return cloud.StoredObject{Path: path, URL: "https://cdn.example.com/" + path, Size: int64(len(payload))}, nil
}

func (m *memoryStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, path)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.objects[path]; !ok {
		return cloud.ErrObjectNotFound
	}
	delete(m.objects, path)
	return nil
}

type recordingPublisher struct {
	events []ActivityEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	p.events = append(p.events, event)
	return nil
}

type staticResolver struct {
	ambientes []string
	calls     int
}

func (r *staticResolver) Resolve(ctx context.Context, uid string) []string {
	r.calls++
	return r.ambientes
}
