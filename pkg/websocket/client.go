package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleRider   = "rider"
	RoleCaptain = "captain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	backendTimeout = 5 * time.Second
)

// Inbound events.
const (
	eventJoin                  = "join"
	eventUpdateLocationCaptain = "update-location-captain"
	eventDriverLocationUpdate  = "driver-location-update"
	eventJoinRide              = "join-ride"
	eventIgnoreRide            = "ignore-ride"
)

const eventAvailableRides = "available-rides"

// Client is a single websocket connection bound to one account.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	AccountID primitive.ObjectID
	Role      string
	SocketID  string
	rooms     map[string]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, accountID primitive.ObjectID, role, socketID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		AccountID: accountID,
		Role:      role,
		SocketID:  socketID,
		rooms:     make(map[string]bool),
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("Websocket read error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.WithError(err).Debug("Dropping malformed socket message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg Message) {
	switch msg.Event {
	case eventJoin:
		c.handleJoin()
	case eventUpdateLocationCaptain:
		c.handleCaptainLocation(msg)
	case eventDriverLocationUpdate:
		c.handleDriverLocation(msg)
	case eventJoinRide:
		if rideID := c.rideIDFrom(msg); rideID != "" {
			c.hub.JoinRideRoom(c, rideID)
		}
	case eventIgnoreRide:
		c.handleIgnoreRide(msg)
	default:
		c.hub.logger.WithField("event", msg.Event).Debug("Unknown socket event")
	}
}

// handleJoin flips a captain into the active directory and sends back the
// current snapshot of dispatchable rides. Riders are already reachable via
// the account map, so their join carries no extra work.
func (c *Client) handleJoin() {
	backend := c.hub.getBackend()
	if c.Role != RoleCaptain || backend == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	snapshot, err := backend.CaptainJoined(ctx, c.AccountID, c.SocketID)
	if err != nil {
		c.hub.logger.WithError(err).WithField("captain", c.AccountID.Hex()).Warn("Captain join failed")
		return
	}
	c.hub.sendToClient(c, Message{
		Event:     eventAvailableRides,
		Data:      snapshot,
		Timestamp: time.Now().Unix(),
	})
}

func (c *Client) handleCaptainLocation(msg Message) {
	backend := c.hub.getBackend()
	if c.Role != RoleCaptain || backend == nil {
		return
	}

	fields, ok := msg.Data.(map[string]interface{})
	if !ok {
		return
	}
	lat, latOK := fields["latitude"].(float64)
	lng, lngOK := fields["longitude"].(float64)
	if !latOK || !lngOK {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	snapshot, err := backend.CaptainLocation(ctx, c.AccountID, lat, lng)
	if err != nil {
		c.hub.logger.WithError(err).WithField("captain", c.AccountID.Hex()).Debug("Location update rejected")
		return
	}
	c.hub.sendToClient(c, Message{
		Event:     eventAvailableRides,
		Data:      snapshot,
		Timestamp: time.Now().Unix(),
	})
}

// handleDriverLocation relays an en-route position to the ride room so the
// rider sees live movement. The payload passes through untouched.
func (c *Client) handleDriverLocation(msg Message) {
	rideID := c.rideIDFrom(msg)
	if rideID == "" {
		return
	}
	c.hub.EmitToRoom("ride_"+rideID, eventDriverLocationUpdate, msg.Data)
}

func (c *Client) handleIgnoreRide(msg Message) {
	backend := c.hub.getBackend()
	if c.Role != RoleCaptain || backend == nil {
		return
	}
	rideID := c.rideIDFrom(msg)
	if rideID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	if err := backend.RideIgnored(ctx, rideID, c.AccountID); err != nil {
		c.hub.logger.WithError(err).WithField("ride", rideID).Debug("Ignore ride failed")
	}
}

func (c *Client) rideIDFrom(msg Message) string {
	fields, ok := msg.Data.(map[string]interface{})
	if !ok {
		return ""
	}
	rideID, _ := fields["ride_id"].(string)
	return rideID
}
