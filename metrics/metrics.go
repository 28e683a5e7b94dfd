// Package metrics exports LAN91C111 driver counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soypat/lan91c/phy"
	"github.com/soypat/lan91c/smc"
)

const namespace = "lan91c"

// Source is the device view a Collector reads on every scrape.
// *smc.Device implements it.
type Source interface {
	Stats() smc.Stats
	Link() phy.LinkMode
	State() smc.State
}

var _ Source = (*smc.Device)(nil)

type counter struct {
	desc  *prometheus.Desc
	value func(*smc.Stats) uint64
}

// Collector is a prometheus.Collector over one device. Every metric carries a
// constant "device" label.
type Collector struct {
	src      Source
	counters []counter
	link     *prometheus.Desc
	state    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector reading src, labelled with name.
func NewCollector(name string, src Source) *Collector {
	labels := prometheus.Labels{"device": name}
	newCounter := func(metric, help string, value func(*smc.Stats) uint64) counter {
		return counter{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels),
			value: value,
		}
	}
	c := &Collector{src: src}
	c.counters = []counter{
		newCounter("tx_frames_total", "Frames transmitted.", func(s *smc.Stats) uint64 { return s.TxFrames }),
		newCounter("tx_bytes_total", "Bytes transmitted, padding included.", func(s *smc.Stats) uint64 { return s.TxBytes }),
		newCounter("rx_frames_total", "Frames delivered to the receive sink.", func(s *smc.Stats) uint64 { return s.RxFrames }),
		newCounter("rx_bytes_total", "Bytes delivered to the receive sink.", func(s *smc.Stats) uint64 { return s.RxBytes }),
		newCounter("rx_errors_total", "Received frames discarded for error status.", func(s *smc.Stats) uint64 { return s.RxErrors }),
		newCounter("rx_empty_polls_total", "Receive polls that found the FIFO empty.", func(s *smc.Stats) uint64 { return s.RxEmptyPolls }),
		newCounter("rx_overruns_total", "Receive overrun interrupts.", func(s *smc.Stats) uint64 { return s.RxOverruns }),
		newCounter("alloc_attempts_total", "Packet allocation status poll attempts.", func(s *smc.Stats) uint64 { return s.AllocAttempts }),
		newCounter("alloc_exhausted_total", "Allocations abandoned after the retry budget.", func(s *smc.Stats) uint64 { return s.AllocExhausted }),
		newCounter("alloc_failed_total", "Allocations reported failed by the MMU.", func(s *smc.Stats) uint64 { return s.AllocFailed }),
		newCounter("mmu_waits_total", "Polls of the MMU busy flag that found it set.", func(s *smc.Stats) uint64 { return s.MMUWaits }),
		newCounter("tx_too_large_total", "Frames rejected for size.", func(s *smc.Stats) uint64 { return s.TxTooLarge }),
		newCounter("tx_timeouts_total", "Transmissions that did not drain in time.", func(s *smc.Stats) uint64 { return s.TxTimeouts }),
		newCounter("tx_errors_total", "Transmit error interrupts serviced.", func(s *smc.Stats) uint64 { return s.TxErrors }),
		newCounter("phy_reset_timeouts_total", "PHY resets that did not complete.", func(s *smc.Stats) uint64 { return s.PhyResetTimeouts }),
		newCounter("autoneg_timeouts_total", "Autonegotiations that did not complete.", func(s *smc.Stats) uint64 { return s.AutonegTimeouts }),
		newCounter("remote_faults_total", "Autonegotiations ending in remote fault.", func(s *smc.Stats) uint64 { return s.RemoteFaults }),
	}
	c.link = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "link_speed_mbps"),
		"Negotiated link speed, 0 when down.", []string{"duplex"}, labels)
	c.state = prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "state"),
		"Lifecycle state, 1 for the current state.", []string{"state"}, labels)
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, ctr := range c.counters {
		ch <- ctr.desc
	}
	ch <- c.link
	ch <- c.state
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.src.Stats()
	for _, ctr := range c.counters {
		ch <- prometheus.MustNewConstMetric(ctr.desc, prometheus.CounterValue, float64(ctr.value(&stats)))
	}
	link := c.src.Link()
	duplex := "half"
	if link.IsFullDuplex() {
		duplex = "full"
	}
	ch <- prometheus.MustNewConstMetric(c.link, prometheus.GaugeValue, float64(link.SpeedMbps()), duplex)
	ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, 1, c.src.State().String())
}
