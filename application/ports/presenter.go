package ports

import (
	"threatmosaic/domain/core/entities"
)

// Presenter is the port through which flows surface user-visible feedback.
// The renderer bridge implements it; tests plug in NoopPresenter.
type Presenter interface {
	// Loading toggles the busy indicator. Flows always clear it on both
	// success and failure paths.
	Loading(active bool)

	// Notice shows a single human-readable notification for a finished or
	// failed flow
	Notice(message string)

	// NodeDetails surfaces the clicked node for the details panel
	NodeDetails(node entities.Node)
}

// NoopPresenter discards all feedback
type NoopPresenter struct{}

// Loading implements Presenter
func (NoopPresenter) Loading(bool) {}

// Notice implements Presenter
func (NoopPresenter) Notice(string) {}

// NodeDetails implements Presenter
func (NoopPresenter) NodeDetails(entities.Node) {}
