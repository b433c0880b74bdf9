package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/juju/loggo"

	"github.com/jask/compass/internal/compass"
	"github.com/jask/compass/internal/config"
	"github.com/jask/compass/internal/database"
	"github.com/jask/compass/internal/database/repository"
	"github.com/jask/compass/internal/export"
	"github.com/jask/compass/internal/logging"
	"github.com/jask/compass/internal/secrets"
	"github.com/jask/compass/internal/service"
	"github.com/jask/compass/internal/tui"
)

var logger = loggo.GetLogger("compass")

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if len(os.Args) > 1 {
		if err := runCommand(cfg, os.Args[1:]); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	logs, err := logging.Setup(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer logs.Close()

	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	// repositories
	activity := repository.NewActivityRepo(db)

	client := compass.New(cfg.Server.URL,
		compass.WithAPIKey(resolveAPIKey(cfg, secrets.Store{})),
		compass.WithTimeout(cfg.Server.Timeout),
	)

	sink, err := exportSink(ctx, cfg.Export)
	if err != nil {
		log.Fatalf("export: %v", err)
	}

	// services
	layers := &service.LayerService{Client: client, Sink: sink, History: activity, Legacy: cfg.Layer.LegacyPayload}
	adversaries := &service.AdversaryService{Client: client, History: activity}

	logger.Infof("starting against %s", client.BaseURL())
	p := tea.NewProgram(tui.New(ctx, tui.Deps{
		Exporter:    layers,
		Uploader:    adversaries,
		Adversaries: adversaries,
		History:     activity,
		ServerURL:   client.BaseURL(),
		UploadDir:   cfg.Upload.Dir,
	}), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

// exportSink writes to the export directory and, when a bucket is set, also
// archives to S3.
func exportSink(ctx context.Context, cfg config.ExportConfig) (export.Sink, error) {
	files := export.FileSink{Dir: cfg.Dir}
	if strings.TrimSpace(cfg.S3Bucket) == "" {
		return files, nil
	}
	archive, err := export.NewS3Sink(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
	if err != nil {
		return nil, err
	}
	return export.Multi{files, archive}, nil
}

// resolveAPIKey prefers the env var, then the saved key for the server, then
// server.api_key from the config file.
func resolveAPIKey(cfg config.Config, store secrets.Store) string {
	if env := strings.TrimSpace(cfg.Server.APIKeyEnv); env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	if k, err := store.FetchServerKey(cfg.Server.URL); err == nil {
		return k
	}
	return cfg.APIKey()
}

// runCommand handles "key set" (reads the key from stdin), "key delete" and
// "config init".
func runCommand(cfg config.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: compass [key set|key delete|config init]")
	}
	store := secrets.Store{}
	switch args[0] + " " + args[1] {
	case "key set":
		fmt.Fprintf(os.Stderr, "API key for %s: ", cfg.Server.URL)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			return fmt.Errorf("read key: %w", err)
		}
		return store.StoreServerKey(cfg.Server.URL, line)
	case "key delete":
		return store.DeleteServerKey(cfg.Server.URL)
	case "config init":
		path := config.Path()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown command %q", strings.Join(args, " "))
	}
}
