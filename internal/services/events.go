package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Socket event names shared with clients.
const (
	EventNewRide               = "new-ride"
	EventRideNoLongerAvailable = "ride-no-longer-available"
	EventNoCaptainsAvailable   = "no-captains-available"
	EventRideConfirmed         = "ride-confirmed"
	EventRideStarted           = "ride-started"
	EventRideEnded             = "ride-ended"
	EventRideCancelled         = "ride-cancelled"
	EventAvailableRides        = "available-rides"
	EventDriverLocation        = "driver-location-update"
)

// Internal side-channel events consumed in-process, never sent to clients.
const (
	EventRideAccepted  = "ride-accepted"
	EventRideCompleted = "ride-completed"
)

type EventScope string

const (
	ScopeAccount  EventScope = "account"
	ScopeRoom     EventScope = "room"
	ScopeGlobal   EventScope = "global"
	ScopeInternal EventScope = "internal"
)

// Event is an outbox entry: a state transition commits first, then its
// events are handed to the dispatcher. The state machine never touches the
// transport directly.
type Event struct {
	Name    string
	Scope   EventScope
	Account primitive.ObjectID
	Room    string
	Payload interface{}
}

func AccountEvent(account primitive.ObjectID, name string, payload interface{}) Event {
	return Event{Name: name, Scope: ScopeAccount, Account: account, Payload: payload}
}

func RoomEvent(room, name string, payload interface{}) Event {
	return Event{Name: name, Scope: ScopeRoom, Room: room, Payload: payload}
}

func GlobalEvent(name string, payload interface{}) Event {
	return Event{Name: name, Scope: ScopeGlobal, Payload: payload}
}

func InternalEvent(name string, payload interface{}) Event {
	return Event{Name: name, Scope: ScopeInternal, Payload: payload}
}

// RideRoom names the broadcast room for one ride's live tracking events.
func RideRoom(rideID primitive.ObjectID) string {
	return "ride_" + rideID.Hex()
}

type RideAcceptedPayload struct {
	RideID    primitive.ObjectID
	CaptainID primitive.ObjectID
	At        time.Time
}

type RideCompletedPayload struct {
	RideID          primitive.ObjectID
	CaptainID       primitive.ObjectID
	Fare            int
	DurationMinutes float64
	At              time.Time
}

// RealtimePublisher is the send side of the realtime channel. Delivery is
// best effort; none of these calls report transport failures back into the
// state machine.
type RealtimePublisher interface {
	EmitToAccount(account primitive.ObjectID, event string, payload interface{}) bool
	EmitToRoom(room, event string, payload interface{})
	EmitGlobal(event string, payload interface{})
}

// PresenceRegistry answers whether an account currently holds a live
// connection.
type PresenceRegistry interface {
	IsConnected(account primitive.ObjectID) bool
}

// EventConsumer receives internal-scope events.
type EventConsumer interface {
	Consume(ctx context.Context, event Event)
}

// EventDispatcher performs the sends for committed outbox events.
type EventDispatcher interface {
	Dispatch(ctx context.Context, events ...Event)
}
