package dispatch

// Metrics receives dispatch outcome counters. A nil Metrics is replaced
// with a no-op implementation.
type Metrics interface {
	IncDelivered(service, target string)
	IncRetried(service, target string)
	IncDropped(service, target string)
	IncFailedOver(service, target string)
}

type noopMetrics struct{}

func (noopMetrics) IncDelivered(string, string) {}
func (noopMetrics) IncRetried(string, string)   {}
func (noopMetrics) IncDropped(string, string)   {}
func (noopMetrics) IncFailedOver(string, string) {}
