package mockapi

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tphakala/go-zscaler"
)

const (
	defaultPageSize = 100
	maxZIAPageSize  = 1000
)

// pageParams reads 1-based paging parameters.
func pageParams(r *http.Request, sizeKey string, maxSize int) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	size, _ = strconv.Atoi(r.URL.Query().Get(sizeKey))
	if size < 1 {
		size = defaultPageSize
	}
	return page, min(size, maxSize)
}

func pageOf[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+size, len(items))]
}

func intParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", "invalid id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", "malformed body: "+err.Error())
		return false
	}
	return true
}

// markPending records an unactivated configuration change.
func (s *Server) markPending() {
	s.activation = zscaler.ActivationPending
}

func sortedValues[K cmp.Ordered, V any](m map[K]*V) []*V {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]*V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r, "pageSize", maxZIAPageSize)
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))

	s.mu.Lock()
	var matched []zscaler.Location
	for _, loc := range sortedValues(s.locations) {
		if search != "" && !strings.Contains(strings.ToLower(loc.Name), search) {
			continue
		}
		if v := q.Get("authRequired"); v != "" && strconv.FormatBool(loc.AuthRequired) != v {
			continue
		}
		if v := q.Get("xffEnabled"); v != "" && strconv.FormatBool(loc.XFFForwardEnabled) != v {
			continue
		}
		matched = append(matched, *loc)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, pageOf(matched, page, size))
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	loc, found := s.locations[id]
	var out zscaler.Location
	if found {
		out = *loc
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource does not exist")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	var loc zscaler.Location
	if !decode(w, r, &loc) {
		return
	}
	if loc.Name == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", "name is required")
		return
	}

	s.mu.Lock()
	for _, existing := range s.locations {
		if existing.Name == loc.Name {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "DUPLICATE_ITEM", "location name already exists")
			return
		}
	}
	s.nextID++
	loc.ID = s.nextID
	stored := loc
	s.locations[loc.ID] = &stored
	s.markPending()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	var loc zscaler.Location
	if !decode(w, r, &loc) {
		return
	}
	if loc.ID != id {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", "id in body does not match path")
		return
	}

	s.mu.Lock()
	if _, found := s.locations[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource does not exist")
		return
	}
	stored := loc
	s.locations[id] = &stored
	s.markPending()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) deleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	_, found := s.locations[id]
	delete(s.locations, id)
	if found {
		s.markPending()
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource does not exist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listRules returns every rule ordered by rule order; ZIA does not page
// this collection.
func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rules := make([]zscaler.URLFilteringRule, 0, len(s.rules))
	for _, rule := range s.rules {
		rules = append(rules, *rule)
	}
	s.mu.Unlock()

	slices.SortFunc(rules, func(a, b zscaler.URLFilteringRule) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) getRule(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rule, found := s.rules[id]
	var out zscaler.URLFilteringRule
	if found {
		out = *rule
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource does not exist")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func validRule(rule *zscaler.URLFilteringRule) string {
	switch {
	case rule.Name == "":
		return "name is required"
	case rule.Order < 1:
		return "order must be at least 1"
	case rule.Rank < 0 || rule.Rank > 7:
		return "rank must be between 0 and 7"
	}
	return ""
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var rule zscaler.URLFilteringRule
	if !decode(w, r, &rule) {
		return
	}
	if msg := validRule(&rule); msg != "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", msg)
		return
	}

	s.mu.Lock()
	s.nextID++
	rule.ID = s.nextID
	if rule.State == "" {
		rule.State = zscaler.RuleEnabled
	}
	stored := rule
	s.rules[rule.ID] = &stored
	s.markPending()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) updateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	var rule zscaler.URLFilteringRule
	if !decode(w, r, &rule) {
		return
	}
	if msg := validRule(&rule); msg != "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT_ARGUMENT", msg)
		return
	}
	rule.ID = id

	s.mu.Lock()
	if _, found := s.rules[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource does not exist")
		return
	}
	stored := rule
	s.rules[id] = &stored
	s.markPending()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := intParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	_, found := s.rules[id]
	delete(s.rules, id)
	if found {
		s.markPending()
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource does not exist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.activation
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, zscaler.ActivationStatus{Status: status})
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.activation = zscaler.ActivationActive
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, zscaler.ActivationStatus{Status: zscaler.ActivationActive})
}
