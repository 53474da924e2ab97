package daqwire

import "sync/atomic"

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as counters, with Timeouts and
// Errors carried under an outcome label.
type ClientStats struct {
	Reads    uint64 // registers read
	Writes   uint64 // registers written
	Batches  uint64 // submissions dispatched
	Splits   uint64 // submissions that spanned more than one frame
	Timeouts uint64 // commands resolved by the reply timeout
	Errors   uint64 // commands resolved with any other error
}

// clientStatsCollector provides internal methods for updating client
// stats. Not exported; the client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{stats: &ClientStats{}}
}

func (c *clientStatsCollector) recordReads(n int) {
	atomic.AddUint64(&c.stats.Reads, uint64(n))
}

func (c *clientStatsCollector) recordWrites(n int) {
	atomic.AddUint64(&c.stats.Writes, uint64(n))
}

func (c *clientStatsCollector) recordBatch(split bool) {
	atomic.AddUint64(&c.stats.Batches, 1)
	if split {
		atomic.AddUint64(&c.stats.Splits, 1)
	}
}

func (c *clientStatsCollector) recordTimeout() {
	atomic.AddUint64(&c.stats.Timeouts, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Reads:    atomic.LoadUint64(&c.stats.Reads),
		Writes:   atomic.LoadUint64(&c.stats.Writes),
		Batches:  atomic.LoadUint64(&c.stats.Batches),
		Splits:   atomic.LoadUint64(&c.stats.Splits),
		Timeouts: atomic.LoadUint64(&c.stats.Timeouts),
		Errors:   atomic.LoadUint64(&c.stats.Errors),
	}
}
