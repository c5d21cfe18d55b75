// Command bufpoolctl is an interactive shell over a bufferpool.Manager
// backed by a real on-disk pageio.DiskFile. It exists to exercise
// PrintSelf, Stats, and the rest of the public surface by hand, and to
// give github.com/chzyer/readline — carried in go.mod but never used
// anywhere in the original module — a real home.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/gojodb/bufferpool/core/bufferpool"
	"github.com/gojodb/bufferpool/core/pageio"
	"github.com/gojodb/bufferpool/pkg/appconfig"
	"github.com/gojodb/bufferpool/pkg/bptelemetry"
	"github.com/gojodb/bufferpool/pkg/logger"
)

const prompt = "bufpool> "

func main() {
	var (
		dbPath     = flag.String("file", "bufpool.db", "path to the backing page file")
		create     = flag.Bool("create", false, "create the backing file if it does not exist")
		configPath = flag.String("config", "", "path to a YAML config file (see pkg/appconfig)")
	)
	flag.Parse()

	cfg := appconfig.Default()
	if *configPath != "" {
		loaded, err := appconfig.LoadFile(*configPath)
		if err != nil {
			fmt.Println("failed to load config:", err)
			return
		}
		cfg = loaded
	}

	log, err := buildLogger(cfg)
	if err != nil {
		fmt.Println("failed to build logger:", err)
		return
	}
	defer log.Sync()

	tel, shutdown, err := bptelemetry.New(cfg.Telemetry)
	if err != nil {
		log.Error("failed to set up telemetry", zap.Error(err))
		return
	}
	defer shutdown(context.Background())

	file, err := openFile(*dbPath, *create, cfg.PageSize)
	if err != nil {
		log.Error("failed to open backing file", zap.Error(err))
		return
	}
	defer file.Close()

	mgr := bufferpool.New(cfg.NumFrames, cfg.PageSize,
		bufferpool.WithLogger(log),
		bufferpool.WithMetrics(tel.Recorder),
		bufferpool.WithTracer(tel.Tracer),
	)
	defer mgr.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     "/tmp/bufpoolctl_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Println("failed to start readline:", err)
		return
	}
	defer rl.Close()

	fmt.Println("bufpoolctl — fetch/unpin/alloc/flush/dispose/stats/print/exit")
	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return
		}
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		runCommand(mgr, file, fields)
		if fields[0] == "exit" || fields[0] == "quit" {
			return
		}
	}
}

func buildLogger(cfg appconfig.Config) (*zap.Logger, error) {
	return logger.New(cfg.Logger)
}

func openFile(path string, create bool, pageSize int) (*pageio.DiskFile, error) {
	return pageio.OpenDiskFile(path, pageSize, create)
}

func runCommand(mgr *bufferpool.Manager, file *pageio.DiskFile, args []string) {
	switch args[0] {
	case "exit", "quit":
		fmt.Println("bye")
		return
	case "fetch":
		if len(args) != 2 {
			fmt.Println("usage: fetch <page-number>")
			return
		}
		page, err := parsePage(args[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		if _, err := mgr.Fetch(file, page); err != nil {
			fmt.Println("fetch failed:", err)
			return
		}
		fmt.Printf("fetched page %d\n", page)
	case "unpin":
		if len(args) != 3 {
			fmt.Println("usage: unpin <page-number> <true|false dirty>")
			return
		}
		page, err := parsePage(args[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		dirty, err := strconv.ParseBool(args[2])
		if err != nil {
			fmt.Println("invalid dirty flag:", err)
			return
		}
		if err := mgr.Unpin(file, page, dirty); err != nil {
			fmt.Println("unpin failed:", err)
			return
		}
		fmt.Println("unpinned")
	case "alloc":
		page, _, err := mgr.AllocPage(file)
		if err != nil {
			fmt.Println("alloc failed:", err)
			return
		}
		fmt.Printf("allocated page %d\n", page)
	case "flush":
		if err := mgr.Flush(file); err != nil {
			fmt.Println("flush failed:", err)
			return
		}
		fmt.Println("flushed")
	case "dispose":
		if len(args) != 2 {
			fmt.Println("usage: dispose <page-number>")
			return
		}
		page, err := parsePage(args[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		if err := mgr.Dispose(file, page); err != nil {
			fmt.Println("dispose failed:", err)
			return
		}
		fmt.Println("disposed")
	case "stats":
		s := mgr.Stats()
		fmt.Printf("accesses=%d disk_reads=%d disk_writes=%d\n", s.Accesses, s.DiskReads, s.DiskWrites)
	case "print":
		fmt.Print(mgr.PrintSelf())
	default:
		fmt.Println("unknown command:", args[0])
	}
}

func parsePage(s string) (pageio.PageNumber, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q: %w", s, err)
	}
	return pageio.PageNumber(n), nil
}
