package queue

import "context"

var _ Publisher = (*DirectPublisher)(nil)

// DirectPublisher dispatches events synchronously, for deployments without a
// Redis stream. The returned id is the notification id.
type DirectPublisher struct {
	dispatcher Dispatcher
}

func NewDirectPublisher(dispatcher Dispatcher) *DirectPublisher {
	return &DirectPublisher{dispatcher: dispatcher}
}

func (p *DirectPublisher) Publish(ctx context.Context, e Event) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	n, err := p.dispatcher.Dispatch(ctx, e.RecipientID, e.Message, e.Options()...)
	return n.ID, err
}
