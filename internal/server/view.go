package server

import (
	"fmt"

	"github.com/thywilljoshua/scholar-refine/internal/intake"
	"github.com/thywilljoshua/scholar-refine/internal/render"
	"github.com/thywilljoshua/scholar-refine/internal/session"
)

type documentView struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"sizeLabel"`
	Pages     int    `json:"pages,omitempty"`
}

// pageData feeds both the templates and the /api/session payload.
type pageData struct {
	State       session.State      `json:"state"`
	Requesting  bool               `json:"requesting"`
	Error       string             `json:"error,omitempty"`
	Documents   []documentView     `json:"documents"`
	Draft       string             `json:"draft"`
	Instruction string             `json:"instruction"`
	LastInput   string             `json:"lastInput,omitempty"`
	HasResult   bool               `json:"hasResult"`
	View        *render.View       `json:"view,omitempty"`
	Rejected    []intake.Rejection `json:"rejected,omitempty"`
	CanRefine   bool               `json:"canRefine"`
}

func newPageData(snap session.Snapshot) pageData {
	p := pageData{
		State:       snap.State,
		Requesting:  snap.State == session.StateRequesting,
		Error:       snap.Error,
		Documents:   make([]documentView, 0, len(snap.Documents)),
		Draft:       snap.Draft,
		Instruction: snap.Instruction,
		LastInput:   snap.LastInput,
	}
	for i, d := range snap.Documents {
		p.Documents = append(p.Documents, documentView{
			Index:     i,
			Name:      d.Name,
			MediaType: d.MediaType,
			Size:      d.Size,
			SizeLabel: fmt.Sprintf("%.2f MB", float64(d.Size)/1024/1024),
			Pages:     d.Pages,
		})
	}
	if snap.Result != nil {
		v := render.Build(*snap.Result)
		p.View = &v
		p.HasResult = true
	}
	p.CanRefine = len(snap.Documents) > 0 && !p.Requesting
	return p
}
