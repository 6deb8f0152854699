package app

import (
	"github.com/dkeye/tandem/internal/core"
)

type BackpressureAction int

const (
	DropFrame BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a connection whose outbound queue is full.
type Policy interface {
	OnBackPressure(conn core.Conn) BackpressureAction
}

// DropPolicy loses the frame and keeps the connection; there is no retry.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.Conn) BackpressureAction { return DropFrame }

// KickPolicy closes a connection that cannot keep up.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.Conn) BackpressureAction { return KickMember }

// PolicyFromConfig maps the slow_consumer setting to a Policy.
func PolicyFromConfig(name string) Policy {
	if name == "kick" {
		return KickPolicy{}
	}
	return DropPolicy{}
}
