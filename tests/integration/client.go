package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"cineseat/internal/models"
)

// TestClient provides methods for testing a running API instance
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTestClient creates a new test client
func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIBaseURL returns the API address under test, defaulting to localhost
func APIBaseURL() string {
	if url := os.Getenv("INTEGRATION_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8081"
}

// ShowtimeID returns the showtime fixture to run against, or skips the test.
// Integration tests need a running stack with seeded data, so they are opt in.
func ShowtimeID(t *testing.T) string {
	id := os.Getenv("INTEGRATION_SHOWTIME_ID")
	if id == "" {
		t.Skip("INTEGRATION_SHOWTIME_ID not set, skipping integration test")
	}
	return id
}

// makeRequest makes an HTTP request and returns the response
func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if user := os.Getenv("INTEGRATION_USER"); user != "" {
		req.SetBasicAuth(user, os.Getenv("INTEGRATION_PASSWORD"))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AcquireLock takes a hold on a seat set
func (c *TestClient) AcquireLock(t *testing.T, showtimeID string, seats []string) *models.CreateLockResponse {
	req := models.CreateLockRequest{
		ShowtimeID: showtimeID,
		Seats:      seats,
		OwnerID:    "integration-test",
	}

	resp := c.makeRequest(t, "POST", "/api/locks", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var lock models.CreateLockResponse
	if err := json.NewDecoder(resp.Body).Decode(&lock); err != nil {
		t.Fatalf("Failed to decode lock response: %v", err)
	}

	return &lock
}

// AcquireLockExpectConflict requests an already-held seat set and returns the
// conflicting seats from the 409 body
func (c *TestClient) AcquireLockExpectConflict(t *testing.T, showtimeID string, seats []string) []string {
	req := models.CreateLockRequest{
		ShowtimeID: showtimeID,
		Seats:      seats,
		OwnerID:    "integration-test-2",
	}

	resp := c.makeRequest(t, "POST", "/api/locks", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 409, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var conflict models.ConflictResponse
	if err := json.NewDecoder(resp.Body).Decode(&conflict); err != nil {
		t.Fatalf("Failed to decode conflict response: %v", err)
	}

	return conflict.ConflictingSeats
}

// ReleaseLock releases a hold
func (c *TestClient) ReleaseLock(t *testing.T, sessionID string) []string {
	resp := c.makeRequest(t, "DELETE", "/api/locks/"+sessionID, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var release models.ReleaseLockResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		t.Fatalf("Failed to decode release response: %v", err)
	}

	return release.ReleasedSeats
}

// LockedSeats lists the seats under active hold for a showtime
func (c *TestClient) LockedSeats(t *testing.T, showtimeID string) []string {
	resp := c.makeRequest(t, "GET", "/api/showtimes/"+showtimeID+"/locked-seats", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var locked models.LockedSeatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&locked); err != nil {
		t.Fatalf("Failed to decode locked seats response: %v", err)
	}

	return locked.LockedSeats
}

// SeatMap fetches the rendered seat map
func (c *TestClient) SeatMap(t *testing.T, showtimeID string) *models.SeatMapResponse {
	resp := c.makeRequest(t, "GET", "/api/showtimes/"+showtimeID+"/seat-map", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var seatMap models.SeatMapResponse
	if err := json.NewDecoder(resp.Body).Decode(&seatMap); err != nil {
		t.Fatalf("Failed to decode seat map response: %v", err)
	}

	return &seatMap
}

// HealthCheck verifies the service is up
func (c *TestClient) HealthCheck(t *testing.T) {
	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
}
