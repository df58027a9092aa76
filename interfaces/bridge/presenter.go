package bridge

import (
	"threatmosaic/domain/core/entities"
)

// Presenter surfaces flow feedback to every connected renderer. It
// implements ports.Presenter on top of the hub.
type Presenter struct {
	hub *Hub
}

// NewPresenter creates a presenter broadcasting through the given hub
func NewPresenter(hub *Hub) *Presenter {
	return &Presenter{hub: hub}
}

// Loading implements ports.Presenter
func (p *Presenter) Loading(active bool) {
	p.hub.Broadcast(Frame{Type: FrameLoading, Payload: LoadingPayload{Active: active}})
}

// Notice implements ports.Presenter
func (p *Presenter) Notice(message string) {
	p.hub.Broadcast(Frame{Type: FrameNotice, Payload: NoticePayload{Message: message}})
}

// NodeDetails implements ports.Presenter
func (p *Presenter) NodeDetails(node entities.Node) {
	p.hub.Broadcast(Frame{Type: FrameDetails, Payload: DetailsPayload{Node: node}})
}
