package eventbus

import "time"

// Topic represents an event topic.
type Topic string

const (
	TopicExchangeRecorded  Topic = "exchange_recorded"
	TopicSummaryFolded     Topic = "summary_folded"
	TopicSummaryDegraded   Topic = "summary_degraded"
	TopicConversationReset Topic = "conversation_reset"
	TopicDocumentIngested  Topic = "document_ingested"
)

// Event is a message passed through the event bus.
type Event struct {
	Topic     Topic
	Payload   any
	Timestamp time.Time
}

// Handler processes an event.
type Handler func(Event)

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(topic Topic, payload any)
}
