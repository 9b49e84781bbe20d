// Package main runs a demo WebSocket client for placement job events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Kick off an async placement job
	body := []byte(`{"cars":[
		{"id":"A","length_ft":15.8,"height_ft":5.3,"weight_lbs":4200,"drop_order":1},
		{"id":"B","length_ft":14.5,"height_ft":5.1,"weight_lbs":3600,"drop_order":2},
		{"id":"C","length_ft":16.2,"height_ft":5.8,"weight_lbs":4400,"drop_order":1},
		{"id":"D","length_ft":14.0,"height_ft":5.0,"weight_lbs":3300,"drop_order":3},
		{"id":"E","length_ft":15.0,"height_ft":5.2,"weight_lbs":3900,"drop_order":2}
	],"max_iters":5000}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/placement/jobs", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var job struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		log.Fatal(err)
	}
	if job.ID == "" {
		log.Fatal("no job id returned")
	}
	log.Printf("Job ID: %s (%s)", job.ID, job.Status)

	// Connect WS and stream the job's events
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws/placement", RawQuery: "jobId=" + job.ID}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m struct {
				Type  string         `json:"type"`
				JobID string         `json:"jobId"`
				TS    string         `json:"ts"`
				Data  map[string]any `json:"data"`
			}
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			payload, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, payload)
			if m.Type == "placement.completed" {
				return
			}
		}
	}()

	// Wait for completion or give up
	select {
	case <-time.After(10 * time.Second):
	case <-done:
	}
}
