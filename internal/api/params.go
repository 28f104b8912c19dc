package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/actor"
	"github.com/hackgods/clinic-scheduling/internal/calendar"
)

// pathID parses the chi URL parameter name as a UUID, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (*calendar.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, name+": "+err.Error())
		return nil, false
	}
	return &d, true
}

func requiredDate(w http.ResponseWriter, r *http.Request, name string) (calendar.Date, bool) {
	d, ok := queryDate(w, r, name)
	if !ok {
		return calendar.Date{}, false
	}
	if d == nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, name+" is required")
		return calendar.Date{}, false
	}
	return *d, true
}

func queryBool(w http.ResponseWriter, r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, name+" must be true or false")
		return nil, false
	}
	return &b, true
}

// caller returns the authenticated actor. Routes behind Authenticate always
// have one; the 401 covers handlers mounted without it.
func caller(w http.ResponseWriter, r *http.Request) (actor.Actor, bool) {
	who, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated, errUnauthenticated.Error())
	}
	return who, ok
}
