// Package museflag wires up the global flags, env/config parsing, logging,
// and shared collaborator construction used by the muse binary.
package museflag

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"go.senan.xyz/flagconf"

	"go.senan.xyz/muse"
	"go.senan.xyz/muse/lyrics"
	"go.senan.xyz/muse/notifications"
	"go.senan.xyz/muse/source/deezer"
	"go.senan.xyz/muse/source/itunes"
)

func EnvPrefix(prefix string) {
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string {
		return prefix
	}
}

func Parse() {
	defaultConfigPath := filepath.Join(xdg.ConfigHome, muse.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "path config file")

	printVersion := flag.Bool("version", false, "print the version")
	printConfig := flag.Bool("config", false, "print the parsed config")

	flag.TextVar(&logLevel, "log-level", &logLevel, "set the logging level")

	flag.Parse()
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), muse.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-16s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

func LibraryPath() *string {
	return flag.String("library-path",
		filepath.Join(xdg.DataHome, muse.Name, "library.json"),
		"path to the library snapshot file")
}

func ArtworkPath() *string {
	return flag.String("artwork-path",
		filepath.Join(xdg.CacheHome, muse.Name, "artwork"),
		"directory for durable artwork storage")
}

func ScanDirs() *[]string {
	var r []string
	flag.Var(&stringsParser{&r}, "scan-dir", "directory to scan for audio files (repeatable)")
	return &r
}

func Notifications() *notifications.Notifications {
	var r notifications.Notifications
	flag.Var(&notificationsParser{&r}, "notification-uri", "add a shoutrrr notification uri for an event")
	return &r
}

func Sources() []muse.MetadataSource {
	var it itunes.Client
	it.HTTPClient = http.DefaultClient
	flag.StringVar(&it.BaseURL, "itunes-base-url", `https://itunes.apple.com/search`, "itunes search base url")
	flag.DurationVar(&it.RateLimit, "itunes-rate-limit", 500*time.Millisecond, "itunes rate limit duration")

	var dz deezer.Client
	dz.HTTPClient = http.DefaultClient
	flag.StringVar(&dz.BaseURL, "deezer-base-url", `https://api.deezer.com/search`, "deezer search base url")
	flag.DurationVar(&dz.RateLimit, "deezer-rate-limit", 500*time.Millisecond, "deezer rate limit duration")

	return []muse.MetadataSource{&it, &dz}
}

func Lyrics() lyrics.Source {
	var lrclib lyrics.LRCLib
	lrclib.HTTPClient = http.DefaultClient
	lrclib.RateLimit = 500 * time.Millisecond

	var genius lyrics.Genius
	genius.HTTPClient = http.DefaultClient
	genius.RateLimit = 500 * time.Millisecond

	return lyrics.FastestSource{&lrclib, &genius}
}
