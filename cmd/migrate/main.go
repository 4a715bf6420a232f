package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"timepay.uz/crm/internal/storage"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("TIMEPAY_PG_DSN"), "PostgreSQL DSN of the shared session store")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or TIMEPAY_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := storage.OpenPG(*dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer pg.Close()

	mgr := pg.Migrator()

	switch flag.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		for _, name := range applied {
			fmt.Println("applied", name)
		}
	case "down":
		var name string
		name, err = mgr.Down(ctx)
		if err == nil {
			fmt.Println("reverted", name)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		for _, item := range history {
			fmt.Println(item)
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
