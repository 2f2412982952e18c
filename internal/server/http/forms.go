package httpserver

import (
	"net/http"

	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/service"
)

// fieldBody distinguishes omitted fields from zero values on field writes.
type fieldBody struct {
	model.Field
	Active  *bool           `json:"active"`
	Options *[]model.Option `json:"options"`
}

func (b fieldBody) field() (model.Field, bool) {
	f := b.Field
	f.Active = b.Active == nil || *b.Active
	if b.Options != nil {
		f.Options = *b.Options
	}
	return f, b.Options != nil
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
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
	q := service.FormQuery{Page: page, Limit: limit, Status: r.URL.Query().Get("status")}
	out, err := s.d.Forms.List(r.Context(), q, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	var f model.Form
	if err := decode(w, r, &f); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Forms.Create(r.Context(), f, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Forms.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var f model.Form
	if err := decode(w, r, &f); err != nil {
		s.fail(w, r, err)
		return
	}
	f.ID = id
	out, err := s.d.Forms.Update(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.d.Forms.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) duplicateForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Forms.Duplicate(r.Context(), id, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) createSection(w http.ResponseWriter, r *http.Request) {
	formID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var sec model.Section
	if err := decode(w, r, &sec); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.d.Forms.CreateSection(r.Context(), formID, sec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var sec model.Section
	if err := decode(w, r, &sec); err != nil {
		s.fail(w, r, err)
		return
	}
	sec.ID = id
	out, err := s.d.Forms.UpdateSection(r.Context(), sec)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.d.Forms.DeleteSection(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createField(w http.ResponseWriter, r *http.Request) {
	sectionID, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body fieldBody
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	f, _ := body.field()
	out, err := s.d.Forms.CreateField(r.Context(), sectionID, f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateField(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body fieldBody
	if err := decode(w, r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	f, supplied := body.field()
	f.ID = id
	out, err := s.d.Forms.UpdateField(r.Context(), f, supplied)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteField(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.d.Forms.DeleteField(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
