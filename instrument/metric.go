package instrument

import "sync/atomic"

// ClientMetrics contains atomic metrics for a client.
// Metrics can be used as the value of a prometheus CounterFunc.
type ClientMetrics struct {
	// CommandCount indicates the number of commands written.
	CommandCount atomic.Uint64
	// QueryCount indicates the number of ASCII queries answered.
	QueryCount atomic.Uint64
	// BlockCount indicates the number of binary blocks read.
	BlockCount atomic.Uint64
	// BytesSent indicates the number of bytes written, terminators included.
	BytesSent atomic.Uint64
	// BytesReceived indicates the number of response bytes received.
	BytesReceived atomic.Uint64
	// ErrorCount indicates the number of failed operations.
	ErrorCount atomic.Uint64
	// FramingErrorCount indicates the number of framing errors.
	FramingErrorCount atomic.Uint64
}

func (m *ClientMetrics) incCommandCount() {
	m.CommandCount.Add(1)
}

func (m *ClientMetrics) incQueryCount() {
	m.QueryCount.Add(1)
}

func (m *ClientMetrics) incBlockCount() {
	m.BlockCount.Add(1)
}

func (m *ClientMetrics) addBytesSent(n int) {
	if n > 0 {
		m.BytesSent.Add(uint64(n))
	}
}

func (m *ClientMetrics) addBytesReceived(n int) {
	if n > 0 {
		m.BytesReceived.Add(uint64(n))
	}
}

func (m *ClientMetrics) incErrorCount() {
	m.ErrorCount.Add(1)
}

func (m *ClientMetrics) incFramingErrorCount() {
	m.FramingErrorCount.Add(1)
}
