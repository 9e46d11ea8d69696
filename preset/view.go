package preset

import "fmt"

// ViewState is everything a renderer needs to draw one preset entry.
type ViewState struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Size        string `json:"size"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	Deletable   bool   `json:"deletable"`
}

func NewViewState(p Preset, active bool) ViewState {
	return ViewState{
		ID:          p.ID,
		Label:       p.Label,
		Size:        fmt.Sprintf("%s × %s", p.Width, p.Height),
		Description: p.Description,
		Active:      active,
		Deletable:   p.Deletable(),
	}
}
