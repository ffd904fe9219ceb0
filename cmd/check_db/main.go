package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/database"
)

// store_documents 테이블 상태 점검 도구
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close(db)

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// Check if the documents table exists
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_name = 'store_documents'
		)
	`
	if err := db.Raw(query).Scan(&exists).Error; err != nil {
		log.Fatal("Failed to check table:", err)
	}

	fmt.Printf("📊 store_documents table exists: %v\n", exists)
	fmt.Println()

	if !exists {
		fmt.Println("❌ Table does NOT exist!")
		fmt.Println("⚠️  Start the server once to run the migration")
		return
	}

	// Per-namespace document counts
	type NamespaceStats struct {
		Namespace string
		Count     int64
	}
	var stats []NamespaceStats
	query = `
		SELECT split_part(key, '/', 1) AS namespace, COUNT(*) AS count
		FROM store_documents
		GROUP BY namespace
		ORDER BY count DESC
	`
	if err := db.Raw(query).Scan(&stats).Error; err != nil {
		log.Fatal("Failed to get statistics:", err)
	}

	fmt.Println("📈 Documents per namespace:")
	var total int64
	for _, s := range stats {
		fmt.Printf("  - %s: %d\n", s.Namespace, s.Count)
		total += s.Count
	}
	fmt.Printf("  - total: %d\n", total)
	fmt.Println()

	// Recently updated documents
	type DocInfo struct {
		Key       string
		UpdatedAt string
	}
	var docs []DocInfo
	query = `
		SELECT key, updated_at
		FROM store_documents
		ORDER BY updated_at DESC
		LIMIT 10
	`
	if err := db.Raw(query).Scan(&docs).Error; err != nil {
		log.Fatal("Failed to get recent documents:", err)
	}

	fmt.Println("🗂 Recently updated documents (last 10):")
	for _, d := range docs {
		fmt.Printf("  - %s (updated %s)\n", d.Key, d.UpdatedAt)
	}
}
