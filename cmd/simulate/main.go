package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// simulate fires concurrent bookings for the same employee and start time at
// a running api-server and verifies that exactly one of them wins. Everything
// else must come back as a conflict, never as a double booking.

type result struct {
	status  int
	latency time.Duration
	body    string
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	baseURL := getenv("API_BASE_URL", "http://localhost:8080")
	workers := getenvInt("WORKERS", 16)

	orgID := mustUUID("ORG_ID")
	employeeID := mustUUID("EMPLOYEE_ID")
	serviceID := mustUUID("SERVICE_ID")

	start := os.Getenv("START")
	if start == "" {
		log.Fatal("START is required (RFC3339, inside the employee's work hours)")
	}

	log.Printf("firing %d concurrent bookings at %s for employee %s", workers, start, employeeID)

	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("%s/orgs/%s/appointments", baseURL, orgID)

	results := make([]result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = book(client, url, employeeID, serviceID, start)
		}(i)
	}
	wg.Wait()

	var created, conflict, other int
	latencies := make([]time.Duration, 0, workers)
	for _, r := range results {
		latencies = append(latencies, r.latency)
		switch {
		case r.status == http.StatusCreated:
			created++
		case r.status == http.StatusConflict:
			conflict++
		default:
			other++
			log.Printf("unexpected status %d: %s", r.status, r.body)
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	log.Printf("created=%d conflict=%d other=%d", created, conflict, other)
	log.Printf("latency p50=%s max=%s", latencies[len(latencies)/2], latencies[len(latencies)-1])

	if created != 1 {
		log.Fatalf("FAIL: expected exactly 1 created booking, got %d", created)
	}
	log.Println("OK: exactly one booking won")
}

func book(client *http.Client, url string, employeeID, serviceID uuid.UUID, start string) result {
	payload := map[string]any{
		"client_id":    uuid.NewString(),
		"employee_ids": []string{employeeID.String()},
		"service_ids":  []string{serviceID.String()},
		"start":        start,
	}
	body, _ := json.Marshal(payload)

	began := time.Now()
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return result{status: -1, latency: time.Since(began), body: err.Error()}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return result{status: resp.StatusCode, latency: time.Since(began), body: string(data)}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func mustUUID(key string) uuid.UUID {
	id, err := uuid.Parse(os.Getenv(key))
	if err != nil {
		log.Fatalf("%s must be a valid UUID: %v", key, err)
	}
	return id
}
