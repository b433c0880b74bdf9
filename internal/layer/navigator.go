package layer

import "encoding/json"

// Navigator is the ATT&CK Navigator layer shape the compass plugin emits.
type Navigator struct {
	Version                      string      `json:"version"`
	Name                         string      `json:"name"`
	Description                  string      `json:"description"`
	Domain                       string      `json:"domain"`
	Techniques                   []Technique `json:"techniques"`
	LegendItems                  []any       `json:"legendItems"`
	ShowTacticRowBackground      bool        `json:"showTacticRowBackground"`
	TacticRowBackground          string      `json:"tacticRowBackground"`
	SelectTechniquesAcrossTactic bool        `json:"selectTechniquesAcrossTactics"`
	Gradient                     Gradient    `json:"gradient"`
}

// Technique is one scored technique entry.
type Technique struct {
	TechniqueID string `json:"techniqueID"`
	Score       int    `json:"score"`
	Color       string `json:"color"`
	Comment     string `json:"comment"`
	Enabled     bool   `json:"enabled"`
}

type Gradient struct {
	Colors   []string `json:"colors"`
	MinValue int      `json:"minValue"`
	MaxValue int      `json:"maxValue"`
}

// Boilerplate returns an empty Navigator 2.2 layer.
func Boilerplate(name, description string) Navigator {
	return Navigator{
		Version:                      "2.2",
		Name:                         name,
		Description:                  description,
		Domain:                       "mitre-enterprise",
		Techniques:                   []Technique{},
		LegendItems:                  []any{},
		ShowTacticRowBackground:      true,
		TacticRowBackground:          "#205b8f",
		SelectTechniquesAcrossTactic: true,
		Gradient: Gradient{
			Colors:   []string{"#ffffff", "#66ff66"},
			MinValue: 0,
			MaxValue: 1,
		},
	}
}

// AddTechnique appends an enabled technique with score 1.
func (n *Navigator) AddTechnique(id string) {
	n.Techniques = append(n.Techniques, Technique{TechniqueID: id, Score: 1, Enabled: true})
}

// Document encodes n as a layer document.
func (n Navigator) Document() (Document, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return Document{}, err
	}
	return Parse(data)
}
