// Package main is a diagnostic tool for testing database connectivity and
// inspecting live org-structure data. It connects to the database, queries the
// workspaces, facilities, and departments tables, and prints a summary to
// stdout. The binary exits with a non-zero code on any failure so it can be
// embedded in health checks or CI/CD pipeline steps to gate deployments on a
// reachable, populated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

func main() {
	dbPassword := os.Getenv("DATABASE_PASSWORD")
	if dbPassword == "" {
		dbPassword = "planivo"
	}

	connStr := fmt.Sprintf("host=localhost port=5432 user=planivo password=%s dbname=planivo sslmode=disable", dbPassword)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check workspaces
	fmt.Println("=== WORKSPACES ===")
	rows, err := db.Query("SELECT id, name FROM workspaces ORDER BY name")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			log.Printf("Warning: failed to scan workspace row: %v", err)
			continue
		}
		fmt.Printf("Workspace: %s (ID: %s)\n", name, id)
	}

	// Check facilities
	fmt.Println("\n=== FACILITIES ===")
	rows2, err := db.Query(`
		SELECT f.id, f.name, w.name
		FROM facilities f JOIN workspaces w ON w.id = f.workspace_id
		ORDER BY w.name, f.name`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	for rows2.Next() {
		var id, name, workspace string
		if err := rows2.Scan(&id, &name, &workspace); err != nil {
			log.Printf("Warning: failed to scan facility row: %v", err)
			continue
		}
		fmt.Printf("Facility: %s/%s (ID: %s)\n", workspace, name, id)
	}

	// Summary counts
	fmt.Println("\n=== SUMMARY ===")
	for _, table := range []string{"workspaces", "facilities", "departments", "users", "user_roles", "approval_requests"} {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			log.Fatalf("Count failed for %s: %v", table, err)
		}
		fmt.Printf("%-20s %d\n", table, count)
	}
}
