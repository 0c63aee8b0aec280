package main

import (
	"flag"
	"log"
	"os"

	"cineseat/internal/validation"
)

func main() {
	var baseURL string
	var showtimeID string
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL for API validation")
	flag.StringVar(&showtimeID, "showtime", "", "Showtime ID with seeded seats to run the scenario against")
	flag.Parse()

	if showtimeID == "" {
		log.Fatal("❌ -showtime is required")
	}

	log.Printf("Starting lock scenario validation against: %s", baseURL)

	validator := validation.NewScenarioValidator(baseURL, showtimeID)
	if err := validator.ValidateAll(); err != nil {
		log.Fatalf("❌ Валидация не пройдена: %v", err)
		os.Exit(1)
	}

	log.Println("✅ Валидация успешно пройдена!")
}
