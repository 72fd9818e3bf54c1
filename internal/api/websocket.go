package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/lorecrafter/internal/events"
)

const (
	// Number of recent events replayed on connect unless ?recent= says otherwise
	defaultRecentEvents = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second // must be less than pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEventsHandler streams events live. ?prefix=scene.&prefix=playthrough.
// and ?playthrough_id= narrow the stream; ?recent=N sets how many buffered events to replay.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter := events.Filter{
		Prefixes:      r.URL.Query()["prefix"],
		PlaythroughID: r.URL.Query().Get("playthrough_id"),
	}
	recent := defaultRecentEvents
	if n, err := strconv.Atoi(r.URL.Query().Get("recent")); err == nil && n >= 0 {
		recent = n
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	send := func(e events.Event) bool {
		if !filter.Match(e) {
			return true
		}
		data, err := json.Marshal(e)
		if err != nil {
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws write event failed: %v", err)
			return false
		}
		return true
	}

	if recent > 0 {
		for _, e := range events.Recent(filter, recent) {
			if !send(e) {
				return
			}
		}
	}

	// reader handles pongs and notices the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if !send(e) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
