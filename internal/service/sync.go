package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/formsync/internal/convert"
	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/repository"
	"github.com/and161185/formsync/internal/validate"
)

// Per-item push outcomes.
const (
	PushCreated = "created"
	PushUpdated = "updated"
	PushSkipped = "skipped"
	PushFailed  = "failed"
)

const persistenceFailure = "persistence failure"

// PullResult is the delta since a watermark.
type PullResult struct {
	Products []model.Product  `json:"products"`
	Users    []model.SyncUser `json:"users"`
	SyncTime string           `json:"syncTime"`
}

// PushError reports a rejected push item. Item is the decoded row, or the raw JSON
// when the row could not be decoded.
type PushError struct {
	Item  any    `json:"item"`
	Error string `json:"error"`
}

// ItemResult is the outcome of one push item. ID is the server id when the item was stored.
type ItemResult struct {
	Index    int    `json:"index"`
	ClientID int64  `json:"clientId"`
	ID       *int64 `json:"id,omitempty"`
	Status   string `json:"status"`
}

// PushResult collects the outcome of a push batch.
type PushResult struct {
	Products []model.Product `json:"products"`
	Errors   []PushError     `json:"errors"`
	Results  []ItemResult    `json:"results"`
}

// Err reports a partial failure of the batch, or nil when every item succeeded or was skipped.
func (r PushResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &errs.PartialBatchError{Failed: len(r.Errors), Total: len(r.Results)}
}

// SyncService reconciles the product catalog with offline clients.
type SyncService interface {
	// Pull returns products and users changed after since. A nil since pulls everything.
	Pull(ctx context.Context, since *time.Time) (PullResult, error)
	// Push applies client rows: negative ids create, other ids update.
	Push(ctx context.Context, items []model.ProductInput) (PushResult, error)
	// PushRaw decodes every row on its own so a malformed row fails alone.
	PushRaw(ctx context.Context, items []json.RawMessage) (PushResult, error)
}

// pushItem is one row of a batch; raw is kept when decoding failed.
type pushItem struct {
	in        model.ProductInput
	raw       json.RawMessage
	decodeErr error
}

type SyncServiceImpl struct {
	products repository.ProductRepository
	users    repository.UserRepository
	v        *validate.Validator
	notify   Notifier
	log      *zap.Logger
	maxBatch int
	now      func() time.Time
}

// NewSyncService constructs SyncService with a batch limit (default 1000).
func NewSyncService(
	products repository.ProductRepository, users repository.UserRepository,
	v *validate.Validator, n Notifier, log *zap.Logger, maxBatch int,
) *SyncServiceImpl {
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SyncServiceImpl{
		products: products, users: users, v: v, notify: orNop(n),
		log: log, maxBatch: maxBatch, now: time.Now,
	}
}

func syncTime(t time.Time) string { return convert.SyncTime(t) }

// Pull reads the delta. The sync time is taken before reading so rows written
// concurrently are delivered again on the next pull instead of being missed.
func (s *SyncServiceImpl) Pull(ctx context.Context, since *time.Time) (PullResult, error) {
	now := s.now()
	wm := time.Unix(0, 0).UTC()
	if since != nil {
		wm = *since
	}

	products, err := s.products.ChangedSince(ctx, wm)
	if err != nil {
		return PullResult{}, fmt.Errorf("pull products: %w", err)
	}
	users, err := s.users.CreatedSince(ctx, wm)
	if err != nil {
		return PullResult{}, fmt.Errorf("pull users: %w", err)
	}
	return PullResult{Products: products, Users: users, SyncTime: syncTime(now)}, nil
}

// Push applies each item independently; one failing item never affects the others.
func (s *SyncServiceImpl) Push(ctx context.Context, items []model.ProductInput) (PushResult, error) {
	rows := make([]pushItem, len(items))
	for i, it := range items {
		rows[i] = pushItem{in: it}
	}
	return s.push(ctx, rows)
}

// PushRaw is Push for undecoded rows. A row that does not decode is reported as
// failed with its raw JSON and the rest of the batch proceeds.
func (s *SyncServiceImpl) PushRaw(ctx context.Context, items []json.RawMessage) (PushResult, error) {
	rows := make([]pushItem, len(items))
	for i, raw := range items {
		var it model.ProductInput
		if err := json.Unmarshal(raw, &it); err != nil {
			var idOnly struct {
				ID int64 `json:"id"`
			}
			_ = json.Unmarshal(raw, &idOnly)
			rows[i] = pushItem{in: model.ProductInput{ID: idOnly.ID}, raw: raw, decodeErr: err}
			continue
		}
		rows[i] = pushItem{in: it}
	}
	return s.push(ctx, rows)
}

func (s *SyncServiceImpl) push(ctx context.Context, items []pushItem) (PushResult, error) {
	if len(items) > s.maxBatch {
		return PushResult{}, errs.NewValidation(fmt.Sprintf("batch too large (%d > %d)", len(items), s.maxBatch))
	}
	res := PushResult{
		Products: []model.Product{},
		Errors:   []PushError{},
		Results:  make([]ItemResult, 0, len(items)),
	}

	for i, row := range items {
		it := row.in
		r := ItemResult{Index: i, ClientID: it.ID}
		if row.decodeErr != nil {
			r.Status = PushFailed
			res.Errors = append(res.Errors, PushError{Item: row.raw, Error: "malformed item: " + row.decodeErr.Error()})
			res.Results = append(res.Results, r)
			continue
		}
		if err := s.v.Struct(it); err != nil {
			r.Status = PushFailed
			res.Errors = append(res.Errors, PushError{Item: it, Error: err.Error()})
			res.Results = append(res.Results, r)
			continue
		}

		p, status, err := s.apply(ctx, it)
		r.Status = status
		switch {
		case err != nil:
			s.log.Error("push item failed", zap.Int("index", i), zap.Int64("client_id", it.ID), zap.Error(err))
			res.Errors = append(res.Errors, PushError{Item: it, Error: persistenceFailure})
		case p != nil:
			r.ID = &p.ID
			res.Products = append(res.Products, *p)
		}
		res.Results = append(res.Results, r)
	}

	if err := res.Err(); err != nil {
		s.log.Warn("push finished with failures", zap.Error(err))
	}
	return res, nil
}

func (s *SyncServiceImpl) apply(ctx context.Context, it model.ProductInput) (*model.Product, string, error) {
	if it.ID < 0 {
		p, err := s.products.Create(ctx, it)
		if err != nil {
			return nil, PushFailed, err
		}
		s.notify.Emit(ctx, EventProductCreated, p)
		return p, PushCreated, nil
	}

	p, err := s.products.Update(ctx, it)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, PushSkipped, nil
	}
	if err != nil {
		return nil, PushFailed, err
	}
	s.notify.Emit(ctx, EventProductUpdated, p)
	return p, PushUpdated, nil
}
