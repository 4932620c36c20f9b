package clip

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"clipstash/clip-api/model"
	"clipstash/clip-api/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	clips  map[string]*model.Clip

	insertErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{clips: make(map[string]*model.Clip)}
}

func (s *fakeStore) Insert(_ context.Context, c *model.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return s.insertErr
	}

	if _, ok := s.clips[c.Name]; ok {
		return ErrConflict
	}

	s.nextID++
	c.ID = s.nextID

	cp := *c
	s.clips[c.Name] = &cp
	return nil
}

func (s *fakeStore) FindByName(_ context.Context, name string, includeSecret bool) (*model.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clips[name]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *c
	if !includeSecret {
		cp.PasswordHash = ""
	}
	return &cp, nil
}

func (s *fakeStore) DeleteByID(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}

	for name, c := range s.clips {
		if c.ID == id {
			delete(s.clips, name)
		}
	}
	return nil
}

func (s *fakeStore) FindExpiredAsOf(_ context.Context, t time.Time) ([]model.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Clip
	for _, c := range s.clips {
		if !c.Expiry.After(t) {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeBroker struct {
	mu sync.Mutex

	downloadErrKeys map[string]bool
	uploadErrKeys   map[string]bool

	mintedUploads map[string]int64 // key -> maxSize passed in
	deletedKeys   []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		downloadErrKeys: make(map[string]bool),
		uploadErrKeys:   make(map[string]bool),
		mintedUploads:   make(map[string]int64),
	}
}

func (b *fakeBroker) MintUploadGrant(_ context.Context, key, contentType string, maxSize int64) (*UploadGrant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.uploadErrKeys[key] {
		return nil, &StorageError{Op: "presign upload", Err: errors.New("boom")}
	}

	b.mintedUploads[key] = maxSize
	return &UploadGrant{
		URL:    "https://bucket.s3.local/",
		Fields: map[string]string{"key": key, "Content-Type": contentType},
	}, nil
}

func (b *fakeBroker) MintDownloadURL(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.downloadErrKeys[key] {
		return "", &StorageError{Op: "presign download", Err: errors.New("boom")}
	}
	return "https://bucket.s3.local/" + key + "?signed", nil
}

func (b *fakeBroker) DeleteObject(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.deletedKeys = append(b.deletedKeys, key)
	return nil
}

func newTestManager() (*Manager, *fakeStore, *fakeBroker) {
	s := newFakeStore()
	b := newFakeBroker()
	return NewManager(s, b, security.New()), s, b
}

func validCreate() *CreateRequest {
	return &CreateRequest{
		Name: "abc",
		Text: "hello",
		Files: []model.FileMeta{
			{FileName: "a.txt", ContentType: "text/plain", Size: 10},
		},
		Expiry: time.Now().Add(time.Hour),
	}
}

func TestCreateAndSearchRoundTrip(t *testing.T) {
	m, _, _ := newTestManager()

	expiry := time.Now().Add(time.Hour)
	req := validCreate()
	req.Expiry = expiry

	require.NoError(t, m.Create(context.Background(), req))

	res, err := m.Search(context.Background(), "abc", "")
	require.NoError(t, err)

	assert.Equal(t, "hello", res.Text)
	assert.True(t, res.Expiry.Equal(expiry))

	require.Len(t, res.Files, 1)
	assert.Equal(t, "a.txt", res.Files[0].FileName)
	assert.Equal(t, int64(10), res.Files[0].Size)
	assert.Equal(t, "text/plain", res.Files[0].MimeType)
	assert.Equal(t, "https://bucket.s3.local/abc/a.txt?signed", res.Files[0].URL)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"empty name", func(r *CreateRequest) { r.Name = "" }},
		{"text too long", func(r *CreateRequest) { r.Text = strings.Repeat("x", MaxTextLength+1) }},
		{"too many files", func(r *CreateRequest) {
			r.Files = make([]model.FileMeta, MaxFiles+1)
			for i := range r.Files {
				r.Files[i] = model.FileMeta{FileName: "f", ContentType: "text/plain", Size: 1}
			}
		}},
		{"missing file name", func(r *CreateRequest) { r.Files[0].FileName = "" }},
		{"file name too long", func(r *CreateRequest) { r.Files[0].FileName = strings.Repeat("x", MaxFileNameLength+1) }},
		{"missing content type", func(r *CreateRequest) { r.Files[0].ContentType = "" }},
		{"zero size", func(r *CreateRequest) { r.Files[0].Size = 0 }},
		{"negative size", func(r *CreateRequest) { r.Files[0].Size = -5 }},
		{"single file over cap", func(r *CreateRequest) { r.Files[0].Size = MaxTotalSize + 1 }},
		{"aggregate over cap", func(r *CreateRequest) {
			r.Files = []model.FileMeta{
				{FileName: "a", ContentType: "text/plain", Size: 13 << 20},
				{FileName: "b", ContentType: "text/plain", Size: 13 << 20},
			}
		}},
		{"missing expiry", func(r *CreateRequest) { r.Expiry = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s, _ := newTestManager()

			req := validCreate()
			tt.mutate(req)

			err := m.Create(context.Background(), req)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Reason)

			// Validation rejects before any store write
			assert.Empty(t, s.clips)
		})
	}
}

func TestCreateDuplicateName(t *testing.T) {
	m, _, _ := newTestManager()

	require.NoError(t, m.Create(context.Background(), validCreate()))

	err := m.Create(context.Background(), validCreate())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateConstraintRaceSurfacesConflict(t *testing.T) {
	// Two creators can both pass the lookup; the store constraint fires at
	// insert time and must come back as the same conflict error.
	m, s, _ := newTestManager()
	s.insertErr = ErrConflict

	err := m.Create(context.Background(), validCreate())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateComputesObjectKeys(t *testing.T) {
	m, s, _ := newTestManager()

	req := validCreate()
	req.Files = append(req.Files, model.FileMeta{FileName: "b.png", ContentType: "image/png", Size: 20})

	require.NoError(t, m.Create(context.Background(), req))

	c := s.clips["abc"]
	require.Len(t, c.Files, 2)
	assert.Equal(t, "abc/a.txt", c.Files[0].ObjectKey)
	assert.Equal(t, "abc/b.png", c.Files[1].ObjectKey)
	assert.Equal(t, 0, c.Files[0].Position)
	assert.Equal(t, 1, c.Files[1].Position)
}

func TestCreateHashesPassword(t *testing.T) {
	m, s, _ := newTestManager()

	req := validCreate()
	req.Password = "hunter42"

	require.NoError(t, m.Create(context.Background(), req))

	c := s.clips["abc"]
	assert.NotEqual(t, "hunter42", c.PasswordHash)
	assert.True(t, strings.HasPrefix(c.PasswordHash, "$argon2id$"))
}

func TestSearchNotFound(t *testing.T) {
	m, _, _ := newTestManager()

	_, err := m.Search(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchExpiredIsNotFoundAndIdempotent(t *testing.T) {
	m, s, _ := newTestManager()

	req := validCreate()
	require.NoError(t, m.Create(context.Background(), req))

	// Age the clip past its expiry
	s.clips["abc"].Expiry = time.Now().Add(-time.Minute)

	_, err := m.Search(context.Background(), "abc", "")
	assert.ErrorIs(t, err, ErrNotFound)

	// Lazy expiry removed the record
	assert.Empty(t, s.clips)

	_, err = m.Search(context.Background(), "abc", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchExpiredSwallowsDeleteFailure(t *testing.T) {
	m, s, _ := newTestManager()

	require.NoError(t, m.Create(context.Background(), validCreate()))
	s.clips["abc"].Expiry = time.Now().Add(-time.Minute)
	s.deleteErr = errors.New("db down")

	// A failing cleanup must not change the caller-visible outcome
	_, err := m.Search(context.Background(), "abc", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchPasswordFlow(t *testing.T) {
	m, _, _ := newTestManager()

	req := validCreate()
	req.Password = "s3cret"
	require.NoError(t, m.Create(context.Background(), req))

	_, err := m.Search(context.Background(), "abc", "")
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = m.Search(context.Background(), "abc", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	res, err := m.Search(context.Background(), "abc", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
}

func TestSearchDropsUnmintableDownloads(t *testing.T) {
	m, _, b := newTestManager()

	req := validCreate()
	req.Files = []model.FileMeta{
		{FileName: "a.txt", ContentType: "text/plain", Size: 10},
		{FileName: "b.txt", ContentType: "text/plain", Size: 20},
		{FileName: "c.txt", ContentType: "text/plain", Size: 30},
	}
	require.NoError(t, m.Create(context.Background(), req))

	b.downloadErrKeys["abc/b.txt"] = true

	res, err := m.Search(context.Background(), "abc", "")
	require.NoError(t, err)

	// Text always comes back; only the broken file is dropped, order kept
	assert.Equal(t, "hello", res.Text)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "a.txt", res.Files[0].FileName)
	assert.Equal(t, "c.txt", res.Files[1].FileName)
}

func TestIssueUploadGrantsQuota(t *testing.T) {
	m, _, _ := newTestManager()

	// 26 MiB across two files is over the aggregate cap
	_, err := m.IssueUploadGrants(context.Background(), "abc", []model.FileMeta{
		{FileName: "a.bin", ContentType: "application/octet-stream", Size: 13 << 20},
		{FileName: "b.bin", ContentType: "application/octet-stream", Size: 13 << 20},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	// 24 MiB is fine
	auths, err := m.IssueUploadGrants(context.Background(), "abc", []model.FileMeta{
		{FileName: "a.bin", ContentType: "application/octet-stream", Size: 12 << 20},
		{FileName: "b.bin", ContentType: "application/octet-stream", Size: 12 << 20},
	})
	require.NoError(t, err)
	assert.Len(t, auths, 2)
}

func TestIssueUploadGrantsScopesMaxSize(t *testing.T) {
	m, _, b := newTestManager()

	_, err := m.IssueUploadGrants(context.Background(), "abc", []model.FileMeta{
		{FileName: "a.txt", ContentType: "text/plain", Size: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100+UploadSlack), b.mintedUploads["abc/a.txt"])
}

func TestIssueUploadGrantsAllOrNothing(t *testing.T) {
	m, _, b := newTestManager()

	b.uploadErrKeys["abc/b.txt"] = true

	auths, err := m.IssueUploadGrants(context.Background(), "abc", []model.FileMeta{
		{FileName: "a.txt", ContentType: "text/plain", Size: 10},
		{FileName: "b.txt", ContentType: "text/plain", Size: 10},
	})

	var sErr *StorageError
	require.ErrorAs(t, err, &sErr)
	assert.Nil(t, auths)
}

func TestIssueUploadGrantsRejectsEmpty(t *testing.T) {
	m, _, _ := newTestManager()

	_, err := m.IssueUploadGrants(context.Background(), "abc", nil)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestConcurrentCreateSameName(t *testing.T) {
	m, _, _ := newTestManager()

	const n = 8

	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = m.Create(context.Background(), validCreate())
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}
