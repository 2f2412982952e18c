package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/formsync/internal/convert"
	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/service"
)

// PullRequest carries the client watermark. Empty means a full sync.
type PullRequest struct {
	LastSync string `json:"lastSync"`
}

// PushRequest is a batch of client product rows.
type PushRequest struct {
	Products []model.ProductInput `json:"products"`
}

// pushBody keeps rows undecoded so a malformed row cannot reject its siblings.
type pushBody struct {
	Products []json.RawMessage `json:"products"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	since, err := convert.ParseWatermark(r.URL.Query().Get("lastSync"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Products.List(r.Context(), since, service.NormalizePage(page, limit))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var in model.ProductInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.d.Products.Create(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.d.Products.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in model.ProductInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	in.ID = id
	p, err := s.d.Products.Update(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.d.Products.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

func (s *Server) pull(w http.ResponseWriter, r *http.Request) {
	var req PullRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	since, err := convert.ParseWatermark(req.LastSync)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Sync.Pull(r.Context(), since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// push answers 200 even when some items failed; the per-item outcome is in the body.
func (s *Server) push(w http.ResponseWriter, r *http.Request) {
	var req pushBody
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Sync.PushRaw(r.Context(), req.Products)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if s.d.Metrics != nil {
		statuses := make([]string, len(out.Results))
		for i, res := range out.Results {
			statuses[i] = res.Status
		}
		s.d.Metrics.ObservePush(statuses...)
	}
	var pbe *errs.PartialBatchError
	if err := out.Err(); errors.As(err, &pbe) {
		s.log.Warn("push partially failed",
			zap.Int("failed", pbe.Failed),
			zap.Int("total", pbe.Total),
			zap.Int64("user_id", caller(r).UserID),
		)
	}
	writeJSON(w, http.StatusOK, out)
}
