package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"cineseat/internal/models"
)

// ScenarioValidator прогоняет сквозной сценарий блокировок против живого
// инстанса: захват, конфликт, освобождение, повторный захват, финализация.
type ScenarioValidator struct {
	baseURL    string
	showtimeID string
}

func NewScenarioValidator(baseURL, showtimeID string) *ScenarioValidator {
	return &ScenarioValidator{baseURL: baseURL, showtimeID: showtimeID}
}

// ValidateAll проверяет весь жизненный цикл блокировки мест
func (v *ScenarioValidator) ValidateAll() error {
	log.Println("Начинаю валидацию сценария блокировок...")

	if err := v.validateLockLifecycle(); err != nil {
		return fmt.Errorf("lock lifecycle validation failed: %w", err)
	}

	if err := v.validateConflict(); err != nil {
		return fmt.Errorf("conflict validation failed: %w", err)
	}

	log.Println("✅ Все сценарии прошли валидацию успешно!")
	return nil
}

func (v *ScenarioValidator) validateLockLifecycle() error {
	log.Println("Проверяю жизненный цикл блокировки...")

	// POST /api/locks
	lockResp, err := v.acquire([]string{"A1", "A2"})
	if err != nil {
		return err
	}
	if lockResp.SessionID == "" {
		return fmt.Errorf("POST /api/locks: expected non-empty session_id")
	}
	if len(lockResp.LockedSeats) != 2 {
		return fmt.Errorf("POST /api/locks: expected 2 locked seats, got %d", len(lockResp.LockedSeats))
	}

	// DELETE /api/locks/:session_id
	resp, err := v.makeRequest("DELETE", "/api/locks/"+lockResp.SessionID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("DELETE /api/locks: expected 200, got %d", resp.StatusCode)
	}

	var releaseResp models.ReleaseLockResponse
	if err := json.NewDecoder(resp.Body).Decode(&releaseResp); err != nil {
		return fmt.Errorf("DELETE /api/locks: failed to decode response: %w", err)
	}
	if len(releaseResp.ReleasedSeats) != 2 {
		return fmt.Errorf("DELETE /api/locks: expected 2 released seats, got %d", len(releaseResp.ReleasedSeats))
	}

	// Повторное освобождение идемпотентно
	resp, err = v.makeRequest("DELETE", "/api/locks/"+lockResp.SessionID, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("repeat DELETE /api/locks: expected 200, got %d", resp.StatusCode)
	}

	log.Println("✅ Жизненный цикл блокировки валиден")
	return nil
}

func (v *ScenarioValidator) validateConflict() error {
	log.Println("Проверяю конфликт пересекающихся наборов мест...")

	first, err := v.acquire([]string{"B1", "B2"})
	if err != nil {
		return err
	}

	// Пересекающийся набор должен получить 409 ровно со спорными местами
	reqBody := models.CreateLockRequest{
		ShowtimeID: v.showtimeID,
		Seats:      []string{"B2", "B3"},
		OwnerID:    "validator-2",
	}
	resp, err := v.makeRequest("POST", "/api/locks", reqBody)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("overlapping POST /api/locks: expected 409, got %d", resp.StatusCode)
	}

	var conflictResp models.ConflictResponse
	if err := json.NewDecoder(resp.Body).Decode(&conflictResp); err != nil {
		return fmt.Errorf("overlapping POST /api/locks: failed to decode response: %w", err)
	}
	if len(conflictResp.ConflictingSeats) != 1 || conflictResp.ConflictingSeats[0] != "B2" {
		return fmt.Errorf("overlapping POST /api/locks: expected conflicting_seats=[B2], got %v", conflictResp.ConflictingSeats)
	}

	// Чистим за собой
	resp, err = v.makeRequest("DELETE", "/api/locks/"+first.SessionID, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	log.Println("✅ Конфликтный сценарий валиден")
	return nil
}

func (v *ScenarioValidator) acquire(seats []string) (*models.CreateLockResponse, error) {
	reqBody := models.CreateLockRequest{
		ShowtimeID: v.showtimeID,
		Seats:      seats,
		OwnerID:    "validator-1",
	}

	resp, err := v.makeRequest("POST", "/api/locks", reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("POST /api/locks: expected 201, got %d", resp.StatusCode)
	}

	var lockResp models.CreateLockResponse
	if err := json.NewDecoder(resp.Body).Decode(&lockResp); err != nil {
		return nil, fmt.Errorf("POST /api/locks: failed to decode response: %w", err)
	}
	return &lockResp, nil
}

func (v *ScenarioValidator) makeRequest(method, path string, body interface{}) (*http.Response, error) {
	var req *http.Request
	var err error

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		req, err = http.NewRequest(method, v.baseURL+path, bytes.NewBuffer(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, v.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	if user := os.Getenv("VALIDATION_USER"); user != "" {
		req.SetBasicAuth(user, os.Getenv("VALIDATION_PASSWORD"))
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

func RunValidation() {
	baseURL := os.Getenv("VALIDATION_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}
	showtimeID := os.Getenv("VALIDATION_SHOWTIME_ID")
	if showtimeID == "" {
		log.Fatal("❌ VALIDATION_SHOWTIME_ID is required")
	}

	validator := NewScenarioValidator(baseURL, showtimeID)
	if err := validator.ValidateAll(); err != nil {
		log.Fatalf("❌ Валидация не пройдена: %v", err)
	}
}
