package blocks

import (
	"sync/atomic"
	"time"

	. "github.com/weberc2/snfs/pkg/types"
)

// Delayed simulates a slow disk by sleeping before every block access once
// enabled. Formatting usually happens with the delay disabled.
type Delayed struct {
	Device
	Delay time.Duration

	enabled int32
	sleep   func(time.Duration)
}

func NewDelayed(inner Device, delay time.Duration) *Delayed {
	return &Delayed{Device: inner, Delay: delay, sleep: time.Sleep}
}

func (d *Delayed) SetEnabled(enabled bool) {
	var v int32
	if enabled {
		v = 1
	}
	atomic.StoreInt32(&d.enabled, v)
}

func (d *Delayed) Enabled() bool {
	return atomic.LoadInt32(&d.enabled) == 1
}

func (d *Delayed) wait() {
	if d.Delay > 0 && d.Enabled() {
		d.sleep(d.Delay)
	}
}

func (d *Delayed) ReadBlock(b Block, out *[BlockSize]byte) error {
	d.wait()
	return d.Device.ReadBlock(b, out)
}

func (d *Delayed) WriteBlock(b Block, data *[BlockSize]byte) error {
	d.wait()
	return d.Device.WriteBlock(b, data)
}

func (d *Delayed) Flush() error {
	return Flush(d.Device)
}
