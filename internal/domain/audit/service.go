package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/blobstore"
)

const exportBatch = 500

// ExportResult describes an archive written to the blob store.
type ExportResult struct {
	Key      string    `json:"key"`
	Count    int       `json:"count"`
	FirstSeq int64     `json:"first_seq"`
	LastSeq  int64     `json:"last_seq"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	SHA256   string    `json:"sha256,omitempty"`
}

type Service struct {
	repo     Repository
	recorder *Recorder
	store    blobstore.Store
	now      func() time.Time
}

// NewService wires listing and export. store may be nil when no archive is
// configured; Export then fails with a validation error.
func NewService(repo Repository, recorder *Recorder, store blobstore.Store) *Service {
	return &Service{repo: repo, recorder: recorder, store: store, now: time.Now}
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Export writes every entry recorded in [from, to) to the archive as
// newline-delimited JSON in sequence order. A zero to means now.
func (s *Service) Export(ctx context.Context, from, to time.Time) (*ExportResult, error) {
	if s.store == nil {
		return nil, apperr.Validation("audit archive is not configured")
	}
	if to.IsZero() {
		to = s.now().UTC()
	}
	if !from.Before(to) {
		return nil, apperr.Validation("export range is empty: from %s is not before to %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	res := &ExportResult{From: from.UTC(), To: to.UTC()}
	var after int64
	for {
		batch, err := s.repo.Range(ctx, from, to, after, exportBatch)
		if err != nil {
			return nil, err
		}
		for _, e := range batch {
			if err := enc.Encode(e); err != nil {
				return nil, fmt.Errorf("encode audit entry %d: %w", e.Seq, err)
			}
			if res.Count == 0 {
				res.FirstSeq = e.Seq
			}
			res.LastSeq = e.Seq
			res.Count++
			after = e.Seq
		}
		if len(batch) < exportBatch {
			break
		}
	}
	if res.Count == 0 {
		return nil, apperr.NotFound("no audit entries between %s and %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}

	res.Key = exportKey(res)
	obj, err := s.store.Put(ctx, res.Key, "application/x-ndjson", buf.Bytes(), map[string]string{
		"first-seq": fmt.Sprint(res.FirstSeq),
		"last-seq":  fmt.Sprint(res.LastSeq),
		"count":     fmt.Sprint(res.Count),
	})
	if err != nil {
		if errors.Is(err, blobstore.ErrExists) {
			return nil, apperr.Conflict("archive %s already exists", res.Key)
		}
		return nil, fmt.Errorf("store audit archive: %w", err)
	}
	res.SHA256 = obj.SHA256

	if err := s.recorder.Record(ctx, auth.ActorFromContext(ctx), ActionExport, ModuleAudit, Details{
		"key":       res.Key,
		"count":     res.Count,
		"first_seq": res.FirstSeq,
		"last_seq":  res.LastSeq,
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// exportKey depends only on the range start and the exported sequence span,
// so repeating an export collides with the earlier archive.
func exportKey(r *ExportResult) string {
	return fmt.Sprintf("audit/%s/audit-%s-%d-%d.ndjson",
		r.From.Format("2006/01/02"), r.From.Format("20060102T150405Z"), r.FirstSeq, r.LastSeq)
}
