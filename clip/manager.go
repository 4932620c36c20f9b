// Package clip implements the clip lifecycle: creation, authenticated
// retrieval with lazy expiry, and issuing of time-limited object-store
// grants. It talks to the metadata store and the object-store broker only
// through the interfaces defined here.
package clip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clipstash/clip-api/model"
	"clipstash/clip-api/pkg/security"

	"go.uber.org/zap"
)

const (
	// UploadSlack is added to a declared file size when minting an upload
	// grant, to tolerate encoding overhead without allowing unbounded uploads.
	UploadSlack = 1 << 20

	// opTimeout bounds every logical operation so a stuck store call can
	// never hang a request indefinitely.
	opTimeout = 15 * time.Second
)

// Store is the metadata persistence contract. Implementations must enforce
// name uniqueness themselves and report violations as ErrConflict.
type Store interface {
	Insert(ctx context.Context, c *model.Clip) error
	FindByName(ctx context.Context, name string, includeSecret bool) (*model.Clip, error)
	// DeleteByID is idempotent. Deleting an id that is already gone is not
	// an error.
	DeleteByID(ctx context.Context, id uint) error
	FindExpiredAsOf(ctx context.Context, t time.Time) ([]model.Clip, error)
}

// ObjectBroker issues time-limited grants against the object store and is
// the only component allowed to talk to it.
type ObjectBroker interface {
	MintUploadGrant(ctx context.Context, key, contentType string, maxSize int64) (*UploadGrant, error)
	MintDownloadURL(ctx context.Context, key string) (string, error)
	// DeleteObject treats a missing object as success.
	DeleteObject(ctx context.Context, key string) error
}

// UploadGrant is a presigned POST authorization: the URL plus the form
// fields the client must echo back to the object store.
type UploadGrant struct {
	URL    string            `json:"url"`
	Fields map[string]string `json:"fields"`
}

// UploadAuthorization pairs a grant with the file it was minted for.
type UploadAuthorization struct {
	FileName string       `json:"fileName"`
	Grant    *UploadGrant `json:"grant"`
}

// DownloadGrant is one attachment of a search result: a presigned GET URL
// plus the echoed file metadata.
type DownloadGrant struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// CreateRequest carries everything needed to create a clip.
type CreateRequest struct {
	Name     string
	Text     string
	Files    []model.FileMeta
	Password string
	Expiry   time.Time
}

// SearchResult is the successful outcome of a clip lookup.
type SearchResult struct {
	Text   string          `json:"text"`
	Files  []DownloadGrant `json:"files"`
	Expiry time.Time       `json:"expiry"`
}

// Manager validates input, enforces quotas and orchestrates the stores. It
// holds no mutable state of its own, so it is safe for concurrent use.
type Manager struct {
	store  Store
	broker ObjectBroker
	argon  *security.ArgonHash
}

func NewManager(store Store, broker ObjectBroker, argon *security.ArgonHash) *Manager {
	return &Manager{
		store:  store,
		broker: broker,
		argon:  argon,
	}
}

// Create validates the request and persists a new clip. No object-store
// calls happen here; upload grants are issued separately so a client can
// retry authorization without re-creating metadata.
func (m *Manager) Create(ctx context.Context, req *CreateRequest) error {
	if err := validateName(req.Name); err != nil {
		return err
	}
	if err := validateText(req.Text); err != nil {
		return err
	}
	if err := validateFiles(req.Files); err != nil {
		return err
	}
	if req.Expiry.IsZero() {
		return invalidf("expiry is required")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Fast friendly error path. The store's unique index is what actually
	// guarantees at most one live clip per name.
	_, err := m.store.FindByName(ctx, req.Name, false)
	if err == nil {
		return ErrConflict
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to check for existing clip, %w", err)
	}

	var passwordHash string
	if req.Password != "" {
		passwordHash, err = m.argon.GenerateFromPassword(req.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password, %w", err)
		}
	}

	c := &model.Clip{
		Name:         req.Name,
		Text:         req.Text,
		PasswordHash: passwordHash,
		Expiry:       req.Expiry,
		CreatedAt:    time.Now(),
	}

	for i, f := range req.Files {
		c.Files = append(c.Files, model.FileRef{
			FileName:    f.FileName,
			ContentType: f.ContentType,
			Size:        f.Size,
			ObjectKey:   model.ObjectKey(req.Name, f.FileName),
			Position:    i,
		})
	}

	if err := m.store.Insert(ctx, c); err != nil {
		// Two concurrent creators can both pass the lookup above. The
		// constraint violation surfaced here is the same user error.
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert clip, %w", err)
	}

	return nil
}

// Search fetches a clip by name, expiring it lazily and verifying its
// password if it has one. Attachments whose download URL cannot be minted
// are dropped from the result rather than failing the whole request.
func (m *Manager) Search(ctx context.Context, name, password string) (*SearchResult, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	c, err := m.store.FindByName(ctx, name, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch clip, %w", err)
	}

	if !c.Expiry.After(time.Now()) {
		// Expired clips look exactly like absent ones to the caller. The
		// delete is best-effort; the reaper will catch anything missed here.
		if err := m.store.DeleteByID(ctx, c.ID); err != nil {
			zap.L().Error("Failed to delete expired clip on read",
				zap.String("name", c.Name), zap.Error(err))
		}
		return nil, ErrNotFound
	}

	if c.PasswordHash != "" {
		if password == "" {
			return nil, ErrPasswordRequired
		}

		ok, err := m.argon.VerifyPasswd(password, c.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("failed to verify password, %w", err)
		}
		if !ok {
			return nil, ErrWrongPassword
		}
	}

	return &SearchResult{
		Text:   c.Text,
		Files:  m.mintDownloads(ctx, c.Files),
		Expiry: c.Expiry,
	}, nil
}

// mintDownloads mints the download URLs for all attachments concurrently,
// dropping any that fail while preserving display order of the rest.
func (m *Manager) mintDownloads(ctx context.Context, files []model.FileRef) []DownloadGrant {
	grants := make([]*DownloadGrant, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()

			url, err := m.broker.MintDownloadURL(ctx, f.ObjectKey)
			if err != nil {
				zap.L().Warn("Dropping attachment with unmintable download URL",
					zap.String("key", f.ObjectKey), zap.Error(err))
				return
			}

			grants[i] = &DownloadGrant{
				URL:      url,
				FileName: f.FileName,
				Size:     f.Size,
				MimeType: f.ContentType,
			}
		}()
	}
	wg.Wait()

	out := make([]DownloadGrant, 0, len(files))
	for _, g := range grants {
		if g != nil {
			out = append(out, *g)
		}
	}

	return out
}

// IssueUploadGrants mints one upload grant per file, scoped to the derived
// object key and the declared size plus a small slack. Unlike downloads this
// is all-or-nothing: an incomplete grant set is unusable to the client.
func (m *Manager) IssueUploadGrants(ctx context.Context, clipName string, files []model.FileMeta) ([]UploadAuthorization, error) {
	if err := validateName(clipName); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, invalidf("at least one file is required")
	}
	if err := validateFiles(files); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	auths := make([]UploadAuthorization, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()

			grant, err := m.broker.MintUploadGrant(ctx,
				model.ObjectKey(clipName, f.FileName), f.ContentType, f.Size+UploadSlack)
			if err != nil {
				errs[i] = err
				return
			}

			auths[i] = UploadAuthorization{FileName: f.FileName, Grant: grant}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return auths, nil
}
