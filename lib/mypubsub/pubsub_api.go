package mypubsub

import "context"

// PubSub carries order lifecycle events to downstream subscribers.
type PubSub interface {
	Publish(c context.Context, topic string, data string) error
	CreateTopic(c context.Context, topic string) error
}

var New func(c context.Context) (PubSub, func(), error)
