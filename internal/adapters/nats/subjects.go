package natsadapter

import (
	"time"

	"github.com/nats-io/nats.go"
)

// Subject layout on the device bus.
const (
	subjectRoot = "carcompanion"

	StreamTrips   = "CARCOMPANION_TRIPS"
	StreamNotices = "CARCOMPANION_NOTICES"
)

func PositionSubject(device string) string { return subjectRoot + ".positions." + device }
func TripSubject(device string) string     { return subjectRoot + ".trips." + device }
func NoticeSubject(device string) string   { return subjectRoot + ".notices." + device }
func PushSubject(device string) string     { return subjectRoot + ".push." + device }
func MapSubject(device string) string      { return subjectRoot + ".map." + device }

// Wildcards used by relays and consumers.
const (
	AllTrips   = subjectRoot + ".trips.>"
	AllNotices = subjectRoot + ".notices.>"
	AllUpdates = subjectRoot + ".>"
)

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
