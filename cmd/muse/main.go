package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/r3labs/sse/v2"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.senan.xyz/table/table"

	"go.senan.xyz/muse"
	"go.senan.xyz/muse/artwork"
	"go.senan.xyz/muse/cmd/internal/museflag"
	"go.senan.xyz/muse/library"
	"go.senan.xyz/muse/notifications"
	"go.senan.xyz/muse/scan"
	"go.senan.xyz/muse/snapshot"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] scan\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] run\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] list [songs|directors]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] serve\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

var dmp = diffmatchpatch.New()

func main() {
	defer museflag.ExitError()
	var (
		libraryPath  = museflag.LibraryPath()
		artworkPath  = museflag.ArtworkPath()
		scanDirs     = museflag.ScanDirs()
		notifs       = museflag.Notifications()
		sources      = museflag.Sources()
		batchSize    = flag.Int("batch-size", 100, "max songs per enrichment pass")
		yieldDelay   = flag.Duration("yield-delay", 30*time.Millisecond, "pause between enriched songs")
		folderArtMax = flag.Int("folder-art-max-files", 20, "max audio files in a folder before its cover is ignored")
		postHook     = flag.String("post-hook", "", "command to run after a successful run")
		listenAddr   = flag.String("listen-addr", ":4534", "listen addr for the serve command")
	)
	museflag.EnvPrefix("muse")
	museflag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "run"
	}

	cache, err := artwork.NewCache(*artworkPath)
	if err != nil {
		log.Fatalf("create artwork cache: %v", err)
	}

	sseServ := sse.New()
	sseServ.AutoStream = true
	sseServ.AutoReplay = false
	defer sseServ.Close()
	libraryStream := sseServ.CreateStream("library")

	mgr, err := muse.New(muse.Config{
		Scanner:           &scan.FS{Roots: *scanDirs},
		Sources:           sources,
		Lyrics:            museflag.Lyrics(),
		Store:             &snapshot.File{Path: *libraryPath},
		Artwork:           cache,
		Observer:          &cliObserver{sse: sseServ, streamID: libraryStream.ID},
		BatchSize:         *batchSize,
		YieldDelay:        *yieldDelay,
		FolderArtMaxFiles: *folderArtMax,
	})
	if err != nil {
		log.Fatalf("create manager: %v", err)
	}
	if err := mgr.Load(); err != nil {
		log.Fatalf("load library: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "scan":
		if err := mgr.Refresh(ctx); err != nil {
			slog.Error("scanning device", "err", err)
			return
		}
		snap := mgr.Snapshot()
		notifs.Sendf(ctx, notifications.ScanComplete, "scanned %d songs", len(snap.Songs))
		slog.Info("scan finished", "songs", len(snap.Songs))

	case "run":
		stats, err := mgr.Run(ctx)
		if err != nil {
			notifs.Send(ctx, notifications.EnrichError, "enrichment finished with errors")
			slog.Error("enriching library", "err", err)
			return
		}
		notifs.Sendf(ctx, notifications.EnrichComplete,
			"enriched %d songs, %d matched", stats.Processed, stats.Matched)
		slog.Info("run finished",
			"processed", stats.Processed, "matched", stats.Matched,
			"artwork", stats.Artwork, "exhausted", stats.Exhausted, "warmed", stats.Warmed)
		runPostHook(ctx, *postHook, stats)

	case "list":
		listLibrary(mgr.Snapshot(), flag.Arg(1))

	case "serve":
		if err := serve(ctx, mgr, sseServ, *listenAddr); err != nil {
			slog.Error("serving library", "err", err)
		}

	default:
		log.Fatalf("unknown command %q", command)
	}
}

func listLibrary(snap library.Snapshot, what string) {
	t := table.NewStringWriter()
	switch what {
	case "directors":
		fmt.Fprintf(t, "director\tmovies\tsongs\n")
		for _, d := range snap.Directors {
			var songs int
			for _, m := range d.Movies {
				songs += len(m.Songs)
			}
			fmt.Fprintf(t, "%s\t%d\t%d\n", d.DisplayTitle, len(d.Movies), songs)
		}
	default:
		fmt.Fprintf(t, "title\tartist\talbum\tenhanced\tsource\n")
		for _, s := range snap.Songs {
			fmt.Fprintf(t, "%s\t%s\t%s\t%t\t%s\n", s.Title, s.Artist, s.Album, s.IsEnhanced, s.MetadataSource)
		}
	}
	for _, row := range strings.Split(strings.TrimRight(t.String(), "\n"), "\n") {
		fmt.Println(row)
	}
}

func runPostHook(ctx context.Context, hook string, stats muse.Stats) {
	if hook == "" {
		return
	}
	parts, err := shlex.Split(hook)
	if err != nil || len(parts) == 0 {
		slog.Error("parse post-hook", "err", err)
		return
	}
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("MUSE_PROCESSED=%d", stats.Processed),
		fmt.Sprintf("MUSE_MATCHED=%d", stats.Matched),
	)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		slog.Error("run post-hook", "err", err)
	}
}

// cliObserver forwards manager events to connected SSE clients and logs
// per song outcomes.
type cliObserver struct {
	sse      *sse.Server
	streamID string
}

func (o *cliObserver) LibraryChanged(snap library.Snapshot) {
	o.publish("library-changed", map[string]any{"songs": len(snap.Songs)})
}

func (o *cliObserver) EnrichProgress(p muse.Progress) {
	logger := slog.With("song", p.Song.ID, "outcome", p.Outcome, "n", fmt.Sprintf("%d/%d", p.Done, p.Total))
	if p.Source != "" {
		logger = logger.With("source", p.Source, "score", fmt.Sprintf("%.2f", p.Score))
	}
	logger.Info("enriched song")
	for _, c := range p.Changes {
		slog.Debug("field changed", "field", c.Field, "diff", fmtDiff(c.Changes))
	}

	o.publish("enrich-progress", map[string]any{
		"song": p.Song.ID, "outcome": p.Outcome, "done": p.Done, "total": p.Total,
	})
}

func (o *cliObserver) EnrichComplete(stats muse.Stats) {
	o.publish("enrich-complete", stats)
}

func (o *cliObserver) publish(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	o.sse.Publish(o.streamID, &sse.Event{Event: []byte(event), Data: payload})
}

func fmtDiff(diff []diffmatchpatch.Diff) string {
	if d := dmp.DiffPrettyText(diff); d != "" {
		return d
	}
	return "[empty]"
}

func serve(ctx context.Context, mgr *muse.Manager, sseServ *sse.Server, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("GET /events", sseServ)
	mux.HandleFunc("GET /library", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(mgr.Snapshot()); err != nil {
			slog.ErrorContext(r.Context(), "encode library", "err", err)
		}
	})
	mux.HandleFunc("POST /scan", func(w http.ResponseWriter, r *http.Request) {
		if err := mgr.Refresh(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /enrich", func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if _, err := mgr.Enrich(context.WithoutCancel(r.Context())); err != nil && !errors.Is(err, muse.ErrEnrichRunning) {
				slog.Error("background enrich", "err", err)
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	})

	server := &http.Server{Addr: addr, Handler: mux}
	errgrp := make(chan error, 1)
	go func() { errgrp <- server.ListenAndServe() }()

	slog.Info("listening", "addr", addr)
	select {
	case err := <-errgrp:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
