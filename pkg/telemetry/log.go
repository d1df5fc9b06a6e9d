package telemetry

import (
	"github.com/Abraxas-365/relay-match/pkg/logx"
)

// LogSink writes every event as a debug log line
type LogSink struct{}

func (LogSink) Record(event Event) {
	kv := make([]any, 0, 2*(len(event.Labels)+len(event.Counts))+2)
	if event.Duration > 0 {
		kv = append(kv, "duration", event.Duration)
	}
	for k, v := range event.Labels {
		kv = append(kv, k, v)
	}
	for k, v := range event.Counts {
		kv = append(kv, k, v)
	}
	logx.Debugw("telemetry "+event.Name, kv...)
}
