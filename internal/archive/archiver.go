package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"docscribe/internal/pathutil"
	"docscribe/internal/preference"
	"docscribe/internal/types"
)

const manifestName = "revision.json"

// Manifest describes one archived revision.
type Manifest struct {
	ProjectID   string          `json:"project_id"`
	RevisionID  string          `json:"revision_id"`
	Format      string          `json:"format"`
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type,omitempty"`
	Size        int             `json:"size"`
	Notes       string          `json:"notes,omitempty"`
	CreatedBy   string          `json:"created_by,omitempty"`
	CreatedAt   types.Timestamp `json:"created_at"`
	ArchivedAt  time.Time       `json:"archived_at"`
}

func (m Manifest) Key() string { return RevisionKey(m.ProjectID, m.RevisionID) }

// RevisionKey is the store key of one revision.
func RevisionKey(projectID, revisionID string) string {
	return pathutil.Join(projectID, revisionID)
}

// Archiver stores revision content next to a JSON manifest.
type Archiver struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewArchiver(store Store, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{store: store, log: log, now: time.Now}
}

func (a *Archiver) Store() Store { return a.store }

// Archive saves rev. The downloaded body is preferred over rev.Content when
// dl is non-nil.
func (a *Archiver) Archive(ctx context.Context, rev types.Revision, dl *types.Download) (Manifest, error) {
	projectID := strings.TrimSpace(rev.ProjectID)
	revisionID := strings.TrimSpace(rev.Key())
	if projectID == "" || revisionID == "" {
		return Manifest{}, fmt.Errorf("archive: project and revision id are required")
	}
	format := preference.Format(rev.Format).Canonical()
	if format == "" {
		format = preference.DefaultFormat
	}

	content := []byte(rev.Content)
	ext := format.Ext()
	contentType := ""
	if dl != nil {
		content = dl.Body
		contentType = dl.ContentType
		if e := strings.TrimPrefix(pathutil.Ext(dl.Filename), "."); e != "" {
			ext = strings.ToLower(e)
		}
	}
	if contentType == "" {
		contentType = contentTypeFor("content." + ext)
	}

	m := Manifest{
		ProjectID:   projectID,
		RevisionID:  revisionID,
		Format:      string(format),
		Filename:    "content." + ext,
		ContentType: contentType,
		Size:        len(content),
		Notes:       rev.Notes,
		CreatedBy:   rev.CreatedBy,
		CreatedAt:   rev.CreatedAt,
		ArchivedAt:  a.now().UTC(),
	}
	key := m.Key()
	if err := a.store.Put(ctx, key, m.Filename, content); err != nil {
		return Manifest{}, fmt.Errorf("archive %s: %w", key, err)
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := a.store.Put(ctx, key, manifestName, raw); err != nil {
		return Manifest{}, fmt.Errorf("archive %s manifest: %w", key, err)
	}
	a.log.Info("revision archived",
		zap.String("project_id", projectID), zap.String("revision_id", revisionID),
		zap.String("file", m.Filename), zap.Int("bytes", m.Size))
	return m, nil
}

func (a *Archiver) Manifest(ctx context.Context, projectID, revisionID string) (Manifest, error) {
	raw, err := a.store.Get(ctx, RevisionKey(projectID, revisionID), manifestName)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s/%s: %w", projectID, revisionID, err)
	}
	return m, nil
}

// Content returns the archived body and its manifest.
func (a *Archiver) Content(ctx context.Context, projectID, revisionID string) ([]byte, Manifest, error) {
	m, err := a.Manifest(ctx, projectID, revisionID)
	if err != nil {
		return nil, Manifest{}, err
	}
	body, err := a.store.Get(ctx, m.Key(), m.Filename)
	if err != nil {
		return nil, Manifest{}, err
	}
	return body, m, nil
}

func (a *Archiver) URL(ctx context.Context, projectID, revisionID string) (string, error) {
	m, err := a.Manifest(ctx, projectID, revisionID)
	if err != nil {
		return "", err
	}
	return a.store.GetURL(ctx, m.Key(), m.Filename)
}

// Revisions lists the archived revisions of a project, newest first.
// Revisions whose manifest is missing or unreadable are skipped.
func (a *Archiver) Revisions(ctx context.Context, projectID string) ([]Manifest, error) {
	paths, err := a.store.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]Manifest, 0, len(paths))
	for _, p := range paths {
		if pathutil.Base(p) != manifestName || pathutil.Depth(p) != 2 {
			continue
		}
		m, err := a.Manifest(ctx, projectID, pathutil.Dir(p))
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				a.log.Warn("skip archived revision", zap.String("path", p), zap.Error(err))
			}
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt.Time, out[j].CreatedAt.Time
		if ti.Equal(tj) {
			return out[i].ArchivedAt.After(out[j].ArchivedAt)
		}
		return ti.After(tj)
	})
	return out, nil
}

// Compare diffs two archived revisions of the same project.
func (a *Archiver) Compare(ctx context.Context, projectID, fromID, toID string) (LineDiff, error) {
	from, _, err := a.Content(ctx, projectID, fromID)
	if err != nil {
		return LineDiff{}, fmt.Errorf("load %s: %w", fromID, err)
	}
	to, _, err := a.Content(ctx, projectID, toID)
	if err != nil {
		return LineDiff{}, fmt.Errorf("load %s: %w", toID, err)
	}
	return Diff(string(from), string(to)), nil
}
