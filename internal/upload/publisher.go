package upload

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Publisher receives the share URL once an object is live at it.
type Publisher interface {
	Publish(url string) error
}

// NewClipboardPublisher returns a Publisher that copies each URL to the
// system clipboard, replacing whatever was there.
func NewClipboardPublisher() Publisher {
	return clipboardPublisher{}
}

type clipboardPublisher struct{}

func (clipboardPublisher) Publish(url string) error {
	if err := clipboard.WriteAll(url); err != nil {
		return fmt.Errorf("copy link to clipboard: %w", err)
	}
	return nil
}

// NewNoopPublisher returns a Publisher that drops every URL.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

type noopPublisher struct{}

func (noopPublisher) Publish(string) error { return nil }
