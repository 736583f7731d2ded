package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Subscriber is one admitted websocket connection. The client never sends
// application messages; the read loop exists only to detect disconnects.
// Outbound events flow through a buffered channel into the write pump so a
// slow peer stalls nothing but its own connection.
type Subscriber struct {
	id      string
	boardID string
	userID  string

	hub    *Hub
	conn   *websocket.Conn
	logger *log.Logger

	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func NewSubscriber(hub *Hub, conn *websocket.Conn, id, boardID, userID string, buffer int, writeTimeout time.Duration, logger *log.Logger) *Subscriber {
	if buffer <= 0 {
		buffer = 64
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Subscriber{
		id:           id,
		boardID:      boardID,
		userID:       userID,
		hub:          hub,
		conn:         conn,
		logger:       logger,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (s *Subscriber) Key() string    { return s.id }
func (s *Subscriber) UserID() string { return s.userID }

// TrySend enqueues an event without blocking. False means the subscriber
// is gone or its buffer is saturated; the caller prunes it.
func (s *Subscriber) TrySend(msg []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// Close deregisters the handle and tears the connection down. Safe to call
// from the read loop, the write pump and the dispatcher; only the first
// call does anything.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.Remove(s.boardID, s)
		s.conn.Close()
	})
}

// Run registers the subscriber, starts the write pump, and blocks reading
// the connection until it drops. Admission must have fully succeeded before
// calling Run.
func (s *Subscriber) Run() {
	s.hub.Add(s.boardID, s)
	go s.writePump()
	s.readLoop()
}

func (s *Subscriber) readLoop() {
	defer s.Close()
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.logger.Debugf("subscriber %s read: %v", s.id, err)
			return
		}
		// inbound frames carry no commands; draining them keeps
		// disconnect detection alive
	}
}

func (s *Subscriber) writePump() {
	defer s.Close()
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debugf("subscriber %s write: %v", s.id, err)
				return
			}
		}
	}
}
