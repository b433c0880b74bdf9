package layer

import (
	"encoding/json"
	"strings"
)

// FileName is the name every exported layer is delivered under.
const FileName = "layer.json"

// Index values understood by the layer endpoint.
const (
	IndexAll       = "all"
	IndexAdversary = "adversary"
)

// Selection is the request body of the layer endpoint. It is either the legacy
// {"all": true} form or the {"index": ..., "adversary_id": ...} form.
type Selection struct {
	Legacy      bool
	Index       string
	AdversaryID string
}

// Select builds the index form. An empty adversary id selects everything.
func Select(adversaryID string) Selection {
	id := strings.TrimSpace(adversaryID)
	if id == "" {
		return Selection{Index: IndexAll}
	}
	return Selection{Index: IndexAdversary, AdversaryID: id}
}

// SelectLegacy builds {"all": true} when no adversary is chosen. Older plugin
// builds only understand that shape; a chosen adversary still uses the index form.
func SelectLegacy(adversaryID string) Selection {
	sel := Select(adversaryID)
	if sel.Index == IndexAll {
		return Selection{Legacy: true}
	}
	return sel
}

// All reports whether the selection covers every adversary.
func (s Selection) All() bool {
	return s.Legacy || s.Index == IndexAll || s.Index == ""
}

func (s Selection) String() string {
	if s.All() {
		return "all adversaries"
	}
	return "adversary " + s.AdversaryID
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if s.Legacy {
		return json.Marshal(struct {
			All bool `json:"all"`
		}{All: true})
	}
	index := s.Index
	if index == "" {
		index = IndexAll
	}
	if index == IndexAll {
		return json.Marshal(struct {
			Index string `json:"index"`
		}{Index: index})
	}
	return json.Marshal(struct {
		Index       string `json:"index"`
		AdversaryID string `json:"adversary_id"`
	}{Index: index, AdversaryID: s.AdversaryID})
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var raw struct {
		All         *bool  `json:"all"`
		Index       string `json:"index"`
		AdversaryID string `json:"adversary_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.All != nil && *raw.All && raw.Index == "" {
		*s = Selection{Legacy: true}
		return nil
	}
	*s = Selection{Index: raw.Index, AdversaryID: raw.AdversaryID}
	return nil
}
