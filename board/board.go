// Package board pushes live queue and table snapshots to websocket clients:
// the staff dashboard and customers following their own place in line.
package board

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/services"
	"github.com/yeremiapane/restaurant-queue/utils"
)

const (
	EventQueueUpdate    = "queue_update"
	EventTableUpdate    = "table_update"
	EventCustomerUpdate = "customer_update"
	EventCustomerGone   = "customer_removed"

	writeWait = 5 * time.Second
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Source is where the board gets its snapshots from.
type Source interface {
	OnQueueChange(ctx context.Context, fn func([]services.QueueEntry)) func()
	OnTablesChange(ctx context.Context, fn func([]models.Table)) func()
	OnCustomerChange(ctx context.Context, id string, fn func(*services.QueueEntry)) func()
}

type client struct {
	conn        *websocket.Conn
	role        string
	customerID  string
	writeMu     sync.Mutex
	unsubscribe func()
}

// staff clients see full queue entries; everyone else gets the public view.
func (c *client) staff() bool {
	return c.role == models.RoleAdmin || c.role == models.RoleStaff
}

// snapshot is one encoded event, per audience.
type snapshot struct {
	staff  []byte
	public []byte
}

func (s snapshot) forClient(c *client) []byte {
	if c.staff() {
		return s.staff
	}
	return s.public
}

func (c *client) send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Board holds every connected client and the latest snapshot of each
// broadcast event, which new clients receive on connect. Staff and public
// clients keep separate snapshots.
type Board struct {
	source Source

	mutex   sync.Mutex
	clients map[*websocket.Conn]*client
	latest  map[string]snapshot
	stop    []func()
}

func New(source Source) *Board {
	return &Board{
		source:  source,
		clients: make(map[*websocket.Conn]*client),
		latest:  make(map[string]snapshot),
	}
}

// Start follows the queue and the tables until Stop.
func (b *Board) Start(ctx context.Context) {
	stopQueue := b.source.OnQueueChange(ctx, func(entries []services.QueueEntry) {
		b.Publish(EventQueueUpdate, entries, services.PublicEntries(entries))
	})
	stopTables := b.source.OnTablesChange(ctx, func(tables []models.Table) {
		b.Broadcast(Message{Event: EventTableUpdate, Data: tables})
	})

	b.mutex.Lock()
	b.stop = append(b.stop, stopQueue, stopTables)
	b.mutex.Unlock()
}

// Stop unsubscribes and disconnects every client.
func (b *Board) Stop() {
	b.mutex.Lock()
	stop := b.stop
	b.stop = nil
	clients := make([]*websocket.Conn, 0, len(b.clients))
	for conn := range b.clients {
		clients = append(clients, conn)
	}
	b.mutex.Unlock()

	for _, fn := range stop {
		fn()
	}
	for _, conn := range clients {
		b.Unregister(conn)
	}
}

// Register adds a connection. A non-empty customerID also subscribes the
// connection to that customer's own record.
func (b *Board) Register(ctx context.Context, conn *websocket.Conn, role, customerID string) {
	c := &client{conn: conn, role: role, customerID: customerID}

	b.mutex.Lock()
	b.clients[conn] = c
	snapshots := make([][]byte, 0, len(b.latest))
	for _, snap := range b.latest {
		snapshots = append(snapshots, snap.forClient(c))
	}
	b.mutex.Unlock()

	for _, data := range snapshots {
		if err := c.send(data); err != nil {
			utils.ErrorLogger.Errorf("Error sending snapshot to %s client: %v", role, err)
		}
	}

	if customerID != "" {
		unsubscribe := b.source.OnCustomerChange(ctx, customerID, func(entry *services.QueueEntry) {
			var msg Message
			switch {
			case entry == nil:
				msg = Message{Event: EventCustomerGone, Data: map[string]string{"id": customerID}}
			case c.staff():
				msg = Message{Event: EventCustomerUpdate, Data: entry}
			default:
				msg = Message{Event: EventCustomerUpdate, Data: entry.Public()}
			}
			b.sendTo(c, msg)
		})
		b.mutex.Lock()
		if _, ok := b.clients[conn]; ok {
			c.unsubscribe = unsubscribe
			unsubscribe = nil
		}
		b.mutex.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	}

	utils.InfoLogger.Printf("Board client connected (role %s)", role)
}

// Unregister removes and closes a connection.
func (b *Board) Unregister(conn *websocket.Conn) {
	b.mutex.Lock()
	c, ok := b.clients[conn]
	delete(b.clients, conn)
	b.mutex.Unlock()

	if !ok {
		return
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	conn.Close()
}

// Serve registers conn and blocks reading from it until the peer goes away.
func (b *Board) Serve(ctx context.Context, conn *websocket.Conn, role, customerID string) {
	b.Register(ctx, conn, role, customerID)
	defer b.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends msg to every client and keeps it as the latest snapshot
// of its event.
func (b *Board) Broadcast(msg Message) {
	b.Publish(msg.Event, msg.Data, msg.Data)
}

// Publish sends staffData to staff clients and publicData to the rest, and
// keeps both as the latest snapshot of event.
func (b *Board) Publish(event string, staffData, publicData interface{}) {
	staff, err := json.Marshal(Message{Event: event, Data: staffData})
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling %s message: %v", event, err)
		return
	}
	public, err := json.Marshal(Message{Event: event, Data: publicData})
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling %s message: %v", event, err)
		return
	}
	snap := snapshot{staff: staff, public: public}

	b.mutex.Lock()
	b.latest[event] = snap
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mutex.Unlock()

	for _, c := range clients {
		if err := c.send(snap.forClient(c)); err != nil {
			utils.ErrorLogger.Errorf("Error sending %s to %s client: %v", event, c.role, err)
		}
	}
}

func (b *Board) sendTo(c *client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling %s message: %v", msg.Event, err)
		return
	}
	if err := c.send(data); err != nil {
		utils.ErrorLogger.Errorf("Error sending %s to customer %s: %v", msg.Event, c.customerID, err)
	}
}

// Count reports how many clients are connected.
func (b *Board) Count() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.clients)
}
