package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sorokya/reoserv-sub000/internal/config"
	"github.com/sorokya/reoserv-sub000/internal/db"
	"github.com/sorokya/reoserv-sub000/internal/eodata"
	"github.com/sorokya/reoserv-sub000/internal/formula"
	"github.com/sorokya/reoserv-sub000/internal/maps"
	"github.com/sorokya/reoserv-sub000/internal/player"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
	"github.com/sorokya/reoserv-sub000/internal/world"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		slog.Info("shutting down", "signal", s.String())
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := "config.yaml"
	if v := os.Getenv("EOSERV_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	accounts := db.NewAccountRepository(database.Pool(), cfg.Server.PasswordSalt)
	chars := db.NewCharacterRepository(database.Pool())
	guilds := db.NewGuildRepository(database.Pool())

	pub, err := eodata.LoadPub(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("loading pub files: %w", err)
	}
	expTable := eodata.NewExpTable()

	formulas, err := loadFormulas(cfg.FormulaFile)
	if err != nil {
		return fmt.Errorf("loading formulas: %w", err)
	}
	defer formulas.Close()

	saver := world.NewSaver(chars)
	coordinator := world.New(&cfg, saver)
	coordinator.SetBanStore(chars)
	coordinator.SetNews(loadNews(cfg.DataDir))
	loadPubImages(coordinator, cfg.DataDir)

	count, err := loadMaps(&cfg, pub, expTable, formulas, coordinator)
	if err != nil {
		return fmt.Errorf("loading maps: %w", err)
	}
	slog.Info("world ready", "maps", count, "items", len(pub.Items), "npcs", len(pub.Npcs))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	slog.Info("accepting connections", "addr", addr)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return coordinator.Run(ctx)
	})
	g.Go(func() error {
		return saver.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})
	g.Go(func() error {
		deps := player.Deps{
			Config:   &cfg,
			World:    coordinator,
			Accounts: accounts,
			Chars:    chars,
			Guilds:   guilds,
			Pub:      pub,
			ExpTable: expTable,
			Formulas: formulas,
		}
		return acceptLoop(ctx, listener, &cfg, coordinator, deps)
	})

	err = g.Wait()

	// Snapshot and save while the map actors still answer, then stop them.
	coordinator.SaveAll()
	for _, m := range coordinator.Maps() {
		m.Inbox().Close()
	}
	saver.Flush()

	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func acceptLoop(ctx context.Context, listener net.Listener, cfg *config.Config, coordinator *world.Coordinator, deps player.Deps) error {
	nextID := 0
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		ip := remoteIP(conn)
		if !coordinator.Admit(ip) {
			slog.Debug("connection refused", "ip", ip)
			conn.Close()
			continue
		}

		nextID++
		if nextID >= protocol.ShortMax {
			nextID = 1
		}
		id := nextID

		bus := protocol.NewBus(conn, cfg.Server.EnforceSequence)
		p := player.New(id, ip, bus, deps)
		coordinator.AddSession(p.Handle())

		go func() {
			p.Run(ctx)
			coordinator.RemoveSession(id, ip)
		}()
	}
}

// loadMaps starts one actor per map file found in MapDir. File names carry
// the map id, e.g. 00005.emf.
func loadMaps(cfg *config.Config, pub *eodata.Pub, expTable *eodata.ExpTable, formulas *formula.Engine, coordinator *world.Coordinator) (int, error) {
	entries, err := os.ReadDir(cfg.MapDir)
	if err != nil {
		return 0, fmt.Errorf("reading map dir %s: %w", cfg.MapDir, err)
	}

	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".emf") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".emf"))
		if err != nil {
			slog.Warn("skipping map file with non-numeric name", "file", name)
			continue
		}

		emf, err := eodata.LoadEmf(filepath.Join(cfg.MapDir, name))
		if err != nil {
			return 0, err
		}

		m := maps.NewMap(id, emf, cfg, pub, expTable, formulas, coordinator)
		coordinator.AddMap(m, emf.File)
		go m.Run()
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("no map files in %s", cfg.MapDir)
	}
	return count, nil
}

// loadPubImages registers the raw pub file images streamed to clients on
// request. A missing file just means that transfer is unavailable.
func loadPubImages(coordinator *world.Coordinator, dataDir string) {
	images := map[int]string{
		player.FileTypeItem:  eodata.FileItems,
		player.FileTypeNpc:   eodata.FileNpcs,
		player.FileTypeSpell: eodata.FileSpells,
		player.FileTypeClass: eodata.FileClasses,
	}
	for fileType, name := range images {
		raw, err := os.ReadFile(filepath.Join(dataDir, name))
		if err != nil {
			slog.Warn("pub image unavailable", "file", name, "error", err)
			continue
		}
		coordinator.SetPubFile(fileType, raw)
	}
}

func loadFormulas(path string) (*formula.Engine, error) {
	if _, err := os.Stat(path); err != nil {
		slog.Info("formula file not found, using built-in formulas", "path", path)
		return formula.New(formula.DefaultFormulas)
	}
	return formula.Load(path)
}

func loadNews(dataDir string) []string {
	raw, err := os.ReadFile(filepath.Join(dataDir, "news.txt"))
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
