// Package ltesto holds test helpers: a deterministic clock and an Ethernet
// frame generator.
package ltesto

import (
	"math/rand"
	"time"

	"github.com/soypat/lan91c/ethernet"
)

// FakeClock is a manually advanced time source. Delay advances the clock by
// the requested duration; Now advances it by NowStep so that loops polling a
// deadline without delaying still terminate.
type FakeClock struct {
	t        time.Time
	NowStep  time.Duration
	Delays   int
	Slept    time.Duration
	OnDelay  func(d time.Duration)
	nowCalls int
}

// NewFakeClock returns a FakeClock starting at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{t: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.nowCalls++
	now := c.t
	c.t = c.t.Add(c.NowStep)
	return now
}

func (c *FakeClock) Delay(d time.Duration) {
	c.Delays++
	c.Slept += d
	c.t = c.t.Add(d)
	if c.OnDelay != nil {
		c.OnDelay(d)
	}
}

// Advance moves the clock forward without counting a delay.
func (c *FakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// NowCalls returns the number of calls to Now.
func (c *FakeClock) NowCalls() int { return c.nowCalls }

// Reset clears the delay counters.
func (c *FakeClock) Reset() {
	c.Delays = 0
	c.Slept = 0
	c.nowCalls = 0
}

// FrameGen generates Ethernet frames with random payloads.
type FrameGen struct {
	SrcMAC, DstMAC [6]byte // hardware address
	EtherType      ethernet.Type
	EnableVLAN     bool
}

func (gen *FrameGen) RandomizeAddrs(rng *rand.Rand) {
	rng.Read(gen.SrcMAC[:])
	rng.Read(gen.DstMAC[:])
	gen.SrcMAC[0] &^= 1 // Unicast source.
}

// AppendRandomFrame appends a frame of exactly size bytes, header included,
// to dst. Sizes below the header length panic.
func (gen *FrameGen) AppendRandomFrame(dst []byte, rng *rand.Rand, size int) []byte {
	isVLAN := gen.EnableVLAN && rng.Int()&1 != 0
	hdr := 14
	if isVLAN {
		hdr = 18
	}
	if size < hdr {
		panic("frame size smaller than header")
	}
	off := len(dst)
	dst = append(dst, make([]byte, size)...)
	efrm, err := ethernet.NewFrame(dst[off:])
	if err != nil {
		panic(err)
	}
	*efrm.DestinationHardwareAddr() = gen.DstMAC
	*efrm.SourceHardwareAddr() = gen.SrcMAC
	et := gen.EtherType
	if et == 0 {
		et = ethernet.TypeIPv4
	}
	if isVLAN {
		efrm.SetVLAN(ethernet.VLANTag(rng.Intn(4094)+1)<<4, et)
	} else {
		efrm.SetEtherType(et)
	}
	rng.Read(dst[off+hdr:])
	if err = efrm.ValidateSize(); err != nil {
		panic(err)
	}
	return dst
}
