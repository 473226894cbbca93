//go:build ignore

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-calendar-sync/config"
	"github.com/fenilmodi00/ipo-calendar-sync/database"
	"github.com/fenilmodi00/ipo-calendar-sync/services"
	"github.com/fenilmodi00/ipo-calendar-sync/shared"
)

func main() {
	fmt.Printf("🏥 IPO Calendar Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	cfg := config.LoadConfig()
	unified := cfg.ToUnifiedConfiguration()
	location := unified.Sync.Location()

	fetcher := services.NewDocumentFetcher(unified.Service, shared.NewHTTPMetrics())
	clock := services.SystemClock(location)
	sources := []services.Source{
		services.NewThirtyEightSource(fetcher, unified.Sources.ThirtyEightURL, clock),
		services.NewKINDSource(fetcher, unified.Sources.KINDURL, clock),
	}

	healthScore := 0
	totalTests := len(sources) + 1

	// Sources
	for _, source := range sources {
		fmt.Printf("📡 Source %s: ", source.Name())
		ctx, cancel := context.WithTimeout(context.Background(), unified.Sync.SourceTimeout)
		result := source.Fetch(ctx)
		cancel()

		if !result.OK() {
			fmt.Printf("❌ FAILED (%v)\n", result.Err)
			continue
		}
		fmt.Printf("✅ OK (%d records in %v)\n", len(result.Records), result.Duration.Round(time.Millisecond))
		healthScore++
	}

	// Database
	fmt.Print("🗄️  Database: ")
	switch {
	case cfg.DatabaseURL == "":
		fmt.Println("⚠️  SKIPPED (DATABASE_URL not set, memory store in use)")
		healthScore++
	default:
		if err := database.ConnectWithConfig(cfg.DatabaseURL, &unified.Database); err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
			break
		}
		repo := database.NewIPOCalendarRepository(database.DB, location, 0)
		records, err := repo.List(context.Background(), "")
		if err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
		} else {
			fmt.Printf("✅ OK (%d calendar entries)\n", len(records))
			healthScore++
		}
		database.Close()
	}

	// Overall health
	fmt.Println(strings.Repeat("-", 50))
	healthPercent := float64(healthScore) / float64(totalTests) * 100

	if healthScore == totalTests {
		fmt.Printf("🎉 SYSTEM HEALTHY: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else if healthScore >= totalTests/2 {
		fmt.Printf("⚠️  SYSTEM DEGRADED: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	} else {
		fmt.Printf("❌ SYSTEM UNHEALTHY: %d/%d checks passed (%.0f%%)\n", healthScore, totalTests, healthPercent)
	}

	fmt.Printf("⏰ Check completed at: %s\n", time.Now().Format("15:04:05"))
}
