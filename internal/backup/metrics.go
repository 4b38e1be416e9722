package backup

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "backup",
		Name:      "envelopes_published_total",
		Help:      "Number of export envelopes published to Kafka.",
	}, []string{"topic", "envelope_type"})

	restoredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "backup",
		Name:      "envelopes_restored_total",
		Help:      "Number of backup messages consumed, labeled by outcome.",
	}, []string{"topic", "result"})

	deadLetterCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gymstore",
		Subsystem: "backup",
		Name:      "dead_letters_total",
		Help:      "Number of rejected backup messages forwarded to the dead-letter topic.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gymstore",
		Subsystem: "backup",
		Name:      "last_message_timestamp_seconds",
		Help:      "Timestamp of the most recent backup message restored.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(publishedCounter, restoredCounter, deadLetterCounter, lastMessageGauge)
}

// RecordPublished counts a published envelope.
func RecordPublished(topic, envelopeType string) {
	publishedCounter.WithLabelValues(topic, envelopeType).Inc()
}

// RecordRestored updates counters for successfully imported messages.
func RecordRestored(msg Message) {
	restoredCounter.WithLabelValues(msg.Topic, "success").Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

// RecordRestoreFailed counts a message whose envelope was rejected.
func RecordRestoreFailed(msg Message) {
	restoredCounter.WithLabelValues(msg.Topic, "failure").Inc()
}

// RecordDeadLettered counts a message forwarded to the dead-letter topic.
func RecordDeadLettered(topic string) {
	deadLetterCounter.WithLabelValues(topic).Inc()
}
