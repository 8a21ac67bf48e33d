package docstore

import "context"

// Unavailable is the store used when no backend is configured.
type Unavailable struct{}

var _ Store = Unavailable{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Get(context.Context, string, string) (*Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Query(context.Context, Query) ([]Document, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Write(context.Context, string, string, Patch, bool) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Subscribe(context.Context, Query) (*Subscription, error) {
	return nil, ErrUnavailable
}
