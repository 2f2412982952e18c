package httpserver

import (
	"net/http"
	"time"

	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/service"
)

// LoginRequest accepts a username or an email in Username.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token and the public user record.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// UserList is a user listing page.
type UserList struct {
	Users      []model.User     `json:"users"`
	Pagination model.Pagination `json:"pagination"`
}

func caller(r *http.Request) model.Principal {
	p, _ := PrincipalFromCtx(r.Context())
	return p
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	tok, u, err := s.d.Auth.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: u})
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in model.NewUser
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.d.Users.Create(r.Context(), in, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
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
	users, pg, err := s.d.Users.List(r.Context(), service.NormalizePage(page, limit), queryBool(r, "includePassword"), caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, UserList{Users: users, Pagination: pg})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.d.Users.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in model.UserUpdate
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.d.Users.Update(r.Context(), id, in, caller(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.d.Users.Delete(r.Context(), id, caller(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.d.Roles.ListActive(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if roles == nil {
		roles = []model.Role{}
	}
	writeJSON(w, http.StatusOK, roles)
}
