// Command main drops every microblog table so the schema can be rebuilt from scratch.
package main

import (
	"flag"
	"fmt"
	"log"

	"microblog/internal/config"
	"microblog/internal/database"
)

func main() {
	force := flag.Bool("force", false, "Required; confirms the tables should be dropped")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to reset a production database")
	}
	if !*force {
		log.Fatal("pass -force to drop all tables")
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Dropping microblog tables...")
	// Children first so foreign keys never block a drop.
	for _, table := range []string{"comments", "follows", "posts", "users", "migration_logs"} {
		if err := db.Migrator().DropTable(table); err != nil {
			log.Fatalf("failed to drop %s: %v", table, err)
		}
	}
	fmt.Println("Database reset. Run cmd/migrate up to recreate the schema.")
}
