package httpserver

import (
	"net/http"

	"github.com/and161185/formsync/internal/convert"
	"github.com/and161185/formsync/internal/model"
)

// SaveAnswerRequest is the body of an answer save. A missing answerId creates the answer.
type SaveAnswerRequest struct {
	AnswerID *int64             `json:"answerId"`
	Values   []model.RawValue   `json:"values"`
	Status   model.AnswerStatus `json:"status"`
}

func answersOrEmpty(a []model.Answer) []model.Answer {
	if a == nil {
		return []model.Answer{}
	}
	return a
}

func (s *Server) saveAnswer(w http.ResponseWriter, r *http.Request) {
	formID, err := pathID(r, "formId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req SaveAnswerRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Answers.Save(r.Context(), model.SaveAnswer{
		FormID:   formID,
		UserID:   caller(r).UserID,
		AnswerID: req.AnswerID,
		Values:   req.Values,
		Status:   req.Status,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Answers.Get(r.Context(), id, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listMyAnswers(w http.ResponseWriter, r *http.Request) {
	out, err := s.d.Answers.ListMine(r.Context(), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answersOrEmpty(out))
}

func (s *Server) listFormAnswersForMe(w http.ResponseWriter, r *http.Request) {
	formID, err := pathID(r, "formId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Answers.ListByFormForUser(r.Context(), formID, caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answersOrEmpty(out))
}

func (s *Server) listFormAnswers(w http.ResponseWriter, r *http.Request) {
	formID, err := pathID(r, "formId")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Answers.ListByForm(r.Context(), formID, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answersOrEmpty(out))
}

// answerDashboard accepts formId, from and to (YYYY-MM-DD) query filters.
func (s *Server) answerDashboard(w http.ResponseWriter, r *http.Request) {
	var f model.DashboardFilter
	q := r.URL.Query()
	if raw := q.Get("formId"); raw != "" {
		id, err := convert.ParseID(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		f.FormID = &id
	}
	var err error
	if f.From, err = convert.ParseDate(q.Get("from")); err != nil {
		s.fail(w, r, err)
		return
	}
	if f.To, err = convert.ParseDate(q.Get("to")); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Answers.Dashboard(r.Context(), f, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
