// Package compasstest provides an in-process stand-in for the compass plugin.
package compasstest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/jask/compass/internal/compass"
	"github.com/jask/compass/internal/layer"
)

// Ability maps an ability to its ATT&CK technique.
type Ability struct {
	ID          string
	TechniqueID string
}

// Upload is one file received on the adversary endpoint.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Body        []byte
}

// Server records everything it is sent.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	apiKey      string
	abilities   []Ability
	adversaries map[string]adversary
	selections  []layer.Selection
	rawBodies   [][]byte
	uploads     []Upload
	failures    map[string]int
}

type adversary struct {
	compass.Adversary
	abilities []string
}

// NewServer starts a server seeded with abilities. Close it when done.
func NewServer(abilities ...Ability) *Server {
	s := &Server{
		abilities:   abilities,
		adversaries: map[string]adversary{},
		failures:    map[string]int{},
	}
	r := mux.NewRouter()
	r.Use(s.authenticate)
	r.HandleFunc(compass.LayerPath, s.generateLayer).Methods(http.MethodPost)
	r.HandleFunc(compass.AdversaryPath, s.createAdversary).Methods(http.MethodPost)
	r.HandleFunc(compass.AdversariesPath, s.listAdversaries).Methods(http.MethodGet)
	s.Server = httptest.NewServer(r)
	return s
}

// AddAdversary registers an adversary using the given ability ids.
func (s *Server) AddAdversary(id, name string, abilityIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adversaries[id] = adversary{
		Adversary: compass.Adversary{AdversaryID: id, Name: name},
		abilities: abilityIDs,
	}
}

// RequireAPIKey rejects requests whose KEY header differs from key.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
}

// FailNext makes the next request to path answer with status.
func (s *Server) FailNext(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Selections returns the decoded layer requests in arrival order.
func (s *Server) Selections() []layer.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]layer.Selection(nil), s.selections...)
}

// LayerBodies returns the raw layer request bodies in arrival order.
func (s *Server) LayerBodies() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.rawBodies...)
}

// Uploads returns every multipart file part received.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if s.apiKey != "" && r.Header.Get(compass.APIKeyHeader) != s.apiKey {
			s.mu.Unlock()
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		status, fail := s.failures[r.URL.Path]
		delete(s.failures, r.URL.Path)
		s.mu.Unlock()
		if fail {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) generateLayer(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var sel layer.Selection
	if err := json.Unmarshal(body, &sel); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.selections = append(s.selections, sel)
	s.rawBodies = append(s.rawBodies, body)
	nav := layer.Boilerplate("All-Abilities", "full set of techniques available")
	include := func(string) bool { return true }
	if !sel.All() {
		adv, ok := s.adversaries[sel.AdversaryID]
		if !ok {
			s.mu.Unlock()
			http.Error(w, "unknown adversary", http.StatusNotFound)
			return
		}
		nav = layer.Boilerplate(adv.Name, adv.Description)
		wanted := map[string]bool{}
		for _, id := range adv.abilities {
			wanted[id] = true
		}
		include = func(id string) bool { return wanted[id] }
	}
	for _, ab := range s.abilities {
		if include(ab.ID) {
			nav.AddTechnique(ab.TechniqueID)
		}
	}
	s.mu.Unlock()

	writeJSON(w, nav)
}

func (s *Server) createAdversary(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var received []Upload
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			received = append(received, Upload{
				Field:       field,
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Body:        data,
			})
		}
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, received...)
	s.mu.Unlock()

	if len(received) == 0 || received[0].Field != compass.UploadField {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}

	var nav layer.Navigator
	if err := json.Unmarshal(received[0].Body, &nav); err != nil {
		http.Error(w, "layer is not JSON", http.StatusBadRequest)
		return
	}
	id := strings.TrimSuffix(received[0].Filename, ".json")
	name := nav.Name
	if name == "" {
		name = id
	}
	var abilities []string
	for _, t := range nav.Techniques {
		for _, ab := range s.abilities {
			if ab.TechniqueID == t.TechniqueID {
				abilities = append(abilities, ab.ID)
			}
		}
	}
	s.AddAdversary(id, name, abilities...)
	writeJSON(w, compass.UploadResult{AdversaryID: id, Name: name})
}

func (s *Server) listAdversaries(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]compass.Adversary, 0, len(s.adversaries))
	for _, a := range s.adversaries {
		out = append(out, a.Adversary)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].AdversaryID < out[j].AdversaryID })
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
