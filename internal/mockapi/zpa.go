package mockapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tphakala/go-zscaler"
)

const maxZPAPageSize = 500

func (s *Server) checkCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "customerID") != s.creds.CustomerID {
			writeZPAError(w, http.StatusForbidden, "customer.access.denied", "customer does not match credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// listSegmentGroups answers in the ZPA envelope, with totalPages encoded
// as a string the way the real API does.
func (s *Server) listSegmentGroups(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, "pagesize", maxZPAPageSize)
	search := strings.ToLower(r.URL.Query().Get("search"))

	s.mu.Lock()
	var matched []zscaler.SegmentGroup
	for _, g := range sortedValues(s.groups) {
		if search == "" || strings.Contains(strings.ToLower(g.Name), search) {
			matched = append(matched, *g)
		}
	}
	s.mu.Unlock()

	totalPages := (len(matched) + size - 1) / size
	writeJSON(w, http.StatusOK, map[string]any{
		"totalPages": strconv.Itoa(totalPages),
		"list":       pageOf(matched, page, size),
	})
}

func (s *Server) getSegmentGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	g, found := s.groups[id]
	var out zscaler.SegmentGroup
	if found {
		out = *g
	}
	s.mu.Unlock()

	if !found {
		writeZPAError(w, http.StatusNotFound, "resource.not.found", "segment group "+id+" does not exist")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSegmentGroup(w http.ResponseWriter, r *http.Request) {
	var g zscaler.SegmentGroup
	if !decode(w, r, &g) {
		return
	}
	if g.Name == "" {
		writeZPAError(w, http.StatusBadRequest, "invalid.request", "name is required")
		return
	}

	s.mu.Lock()
	s.nextID++
	g.ID = segmentGroupID(s.nextID)
	g.CreationTime = strconv.FormatInt(time.Now().Unix(), 10)
	g.ModifiedTime = g.CreationTime
	if g.ConfigSpace == "" {
		g.ConfigSpace = "DEFAULT"
	}
	stored := g
	s.groups[g.ID] = &stored
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) updateSegmentGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var g zscaler.SegmentGroup
	if !decode(w, r, &g) {
		return
	}

	s.mu.Lock()
	existing, found := s.groups[id]
	if found {
		g.ID = id
		g.CreationTime = existing.CreationTime
		g.ModifiedTime = strconv.FormatInt(time.Now().Unix(), 10)
		stored := g
		s.groups[id] = &stored
	}
	s.mu.Unlock()

	if !found {
		writeZPAError(w, http.StatusNotFound, "resource.not.found", "segment group "+id+" does not exist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSegmentGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	g, found := s.groups[id]
	inUse := found && len(g.Applications) > 0
	if found && !inUse {
		delete(s.groups, id)
	}
	s.mu.Unlock()

	switch {
	case !found:
		writeZPAError(w, http.StatusNotFound, "resource.not.found", "segment group "+id+" does not exist")
	case inUse:
		writeZPAError(w, http.StatusBadRequest, "resource.in.use", "segment group has application segments")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, "pageSize", 5000)
	q := r.URL.Query()
	username := q.Get("username")
	osType, _ := strconv.Atoi(q.Get("osType"))

	s.mu.Lock()
	var matched []zscaler.Device
	for _, d := range s.devices {
		if username != "" && !strings.EqualFold(d.User, username) {
			continue
		}
		if osType != 0 && int(d.Type) != osType {
			continue
		}
		matched = append(matched, *d)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, pageOf(matched, page, size))
}

func (s *Server) listECGroups(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, "pageSize", maxZIAPageSize)

	s.mu.Lock()
	groups := make([]zscaler.ECGroup, 0, len(s.ecGroups))
	for _, g := range s.ecGroups {
		groups = append(groups, *g)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, pageOf(groups, page, size))
}
