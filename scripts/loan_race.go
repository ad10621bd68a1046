//go:build ignore
// +build ignore

// Manual concurrency stress test for the loan API.
//
// Fires N simultaneous POST /api/prestamos requests for the same book and
// verifies that exactly one succeeds (201) while the rest are rejected with a
// conflict (409). Requires a running server and a staff bearer token.
//
// Usage:
//
//	TOKEN=<jwt> go run ./scripts/loan_race.go <book_id> <user1_id> [user2_id ...]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type result struct {
	UserID     string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}
	token := os.Getenv("TOKEN")

	args := os.Args[1:]
	if len(args) < 2 || token == "" {
		log.Fatal("Usage: TOKEN=<jwt> go run ./scripts/loan_race.go <book_id> <user1_id> [user2_id ...]")
	}
	bookID := args[0]
	userIDs := args[1:]

	fmt.Printf("=== Loan Race Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Book   : %s\n", bookID)
	fmt.Printf("Users  : %d\n\n", len(userIDs))

	results := make([]result, len(userIDs))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i, uid := range userIDs {
		wg.Add(1)
		go func(idx int, userID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptLoan(serverAddr, token, bookID, userID)
		}(i, uid)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()

	var created, conflicts, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] user=%-38s err=%v\n", r.UserID, r.Err)
		case r.StatusCode == http.StatusCreated:
			created++
			fmt.Printf("  [LOAN] user=%-38s status=%d\n", r.UserID, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			conflicts++
			fmt.Printf("  [CONF] user=%-38s status=%d msg=%s\n", r.UserID, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [????] user=%-38s status=%d msg=%s\n", r.UserID, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\nCreated: %d  Conflicts: %d  Failures: %d\n", created, conflicts, failures)
	if created != 1 {
		fmt.Println("FAIL: expected exactly one loan to be created")
		os.Exit(1)
	}
	fmt.Println("PASS: exactly one loan created, all other writers rejected")
}

func attemptLoan(serverAddr, token, bookID, userID string) result {
	payload := map[string]any{
		"book_id":   bookID,
		"user_id":   userID,
		"loan_date": time.Now().UTC().Format(time.RFC3339),
		"due_date":  time.Now().UTC().AddDate(0, 0, 14).Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, serverAddr+"/api/prestamos", bytes.NewReader(body))
	if err != nil {
		return result{UserID: userID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return result{UserID: userID, Err: err}
	}
	defer resp.Body.Close()

	var envelope struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	return result{UserID: userID, StatusCode: resp.StatusCode, Message: envelope.Message}
}
