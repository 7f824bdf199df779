package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/arhen/satset.io/internal/client/api"
	"github.com/arhen/satset.io/internal/client/store"
	clientsync "github.com/arhen/satset.io/internal/client/sync"
	"github.com/arhen/satset.io/pkg/generator"
	"github.com/arhen/satset.io/pkg/validator"
)

const localAliasLength = 6

func main() {
	shortenCmd := flag.NewFlagSet("shorten", flag.ExitOnError)
	shortenURL := shortenCmd.String("url", "", "target https URL")
	shortenAlias := shortenCmd.String("alias", "", "preferred alias (optional)")
	shortenOffline := shortenCmd.Bool("offline", false, "queue without contacting the server")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkAlias := checkCmd.String("alias", "", "alias to check")

	if len(os.Args) < 2 {
		fmt.Println("expected 'shorten', 'sync', 'status' or 'check' subcommands")
		os.Exit(1)
	}

	baseURL := os.Getenv("SATSET_API")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	dbPath := os.Getenv("SATSET_DB")
	if dbPath == "" {
		dbPath = "satset-client.db"
	}

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open client store: %v", err)
	}
	defer st.Close()

	queue := clientsync.NewQueue(st, api.NewClient(baseURL))
	queue.Subscribe(func(status clientsync.Status, message string) {
		if message != "" {
			fmt.Printf("[%s] %s\n", status, message)
		}
	})

	ctx := context.Background()

	switch os.Args[1] {
	case "shorten":
		shortenCmd.Parse(os.Args[2:])
		doShorten(ctx, queue, *shortenURL, *shortenAlias, *shortenOffline)
	case "sync":
		doSync(ctx, queue)
	case "status":
		doStatus(queue)
	case "check":
		checkCmd.Parse(os.Args[2:])
		doCheck(ctx, api.NewClient(baseURL), *checkAlias)
	default:
		fmt.Println("expected 'shorten', 'sync', 'status' or 'check' subcommands")
		os.Exit(1)
	}
}

// doShorten commits a link optimistically: the alias is chosen locally and
// queued; the actual server write happens on the next drain.
func doShorten(ctx context.Context, queue *clientsync.Queue, url, alias string, offline bool) {
	if !validator.IsValidURL(url) {
		log.Fatal("URL must be a valid https URL with a public hostname")
	}

	if alias == "" {
		var err error
		alias, err = generator.Generate(localAliasLength)
		if err != nil {
			log.Fatalf("Failed to generate alias: %v", err)
		}
	} else if !validator.IsValidAlias(alias) {
		log.Fatal("Alias must be 1-16 alphanumeric characters")
	}

	queue.SetOnline(!offline)

	if err := queue.Enqueue(alias, url); err != nil {
		log.Fatalf("Failed to queue link: %v", err)
	}
	fmt.Printf("Queued %s -> %s\n", alias, url)

	if !offline {
		queue.Drain(ctx)
		printOutcome(queue, alias)
	}
}

func doSync(ctx context.Context, queue *clientsync.Queue) {
	status := queue.Drain(ctx)
	fmt.Printf("Sync finished: %s (%d pending)\n", status, queue.PendingCount())
}

func doStatus(queue *clientsync.Queue) {
	fmt.Printf("Status: %s\n", queue.Status())
	fmt.Printf("Pending tasks: %d\n", queue.PendingCount())
}

func doCheck(ctx context.Context, client *api.Client, alias string) {
	if alias == "" {
		log.Fatal("check requires -alias")
	}

	result, err := client.CheckAlias(ctx, alias)
	if err != nil {
		log.Fatalf("Check failed: %v", err)
	}

	if result.Available {
		fmt.Printf("%s is available\n", result.Alias)
	} else if result.Reason != "" {
		fmt.Printf("%s is not available: %s\n", result.Alias, result.Reason)
	} else {
		fmt.Printf("%s is taken\n", result.Alias)
	}
}

func printOutcome(queue *clientsync.Queue, alias string) {
	switch {
	case queue.IsSynced(alias):
		fmt.Printf("Synced %s\n", alias)
	case queue.IsPending(alias):
		fmt.Printf("%s is still pending; run 'sync' to retry\n", alias)
	default:
		fmt.Printf("%s could not be synced\n", alias)
	}
}
