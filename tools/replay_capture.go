//go:build ignore

// Replays hub capture files through the command parser and compares the
// replies the display would give with the replies it actually gave.
//
//	go run tools/replay_capture.go <directory-or-file> [dialect]
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/muurk/sensordash/internal/bridge"
	"github.com/muurk/sensordash/internal/protocol"
)

// Statistics tracks replay results
type Statistics struct {
	TotalFiles   int
	TotalRecords int
	Accepted     int
	Rejected     int
	NoReply      int
	Kinds        map[string]int
	Mismatches   []Mismatch
	LongestLine  string
}

// Mismatch is a record whose recorded reply differs from the replayed one
type Mismatch struct {
	File     string
	Seq      int
	Line     string
	Recorded string
	Replayed string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: replay_capture <directory-or-file> [single|dual|mood]")
		fmt.Println("Example: replay_capture ./captures dual")
		os.Exit(1)
	}

	path := os.Args[1]
	dialect := protocol.DialectSingle
	if len(os.Args) > 2 {
		d, err := protocol.ParseDialect(os.Args[2])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		dialect = d
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error accessing path: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.jsonl"))
		if err != nil {
			fmt.Printf("Error finding JSONL files: %v\n", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No JSONL files found in %s\n", path)
			os.Exit(1)
		}
	} else {
		files = []string{path}
	}

	fmt.Printf("=== Sensordash Capture Replay ===\n")
	fmt.Printf("Dialect: %s\n", dialect)
	fmt.Printf("Files to process: %d\n\n", len(files))

	stats := Statistics{
		Kinds: make(map[string]int),
	}
	parser := protocol.NewParser(dialect)
	for _, file := range files {
		processFile(file, parser, &stats)
	}

	printStatistics(&stats)
}

func processFile(filename string, parser protocol.Parser, stats *Statistics) {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Printf("Error reading file %s: %v\n", filename, err)
		return
	}
	defer f.Close()

	records, err := bridge.ReadCapture(f)
	if err != nil {
		fmt.Printf("Error parsing %s: %v\n", filename, err)
		return
	}
	stats.TotalFiles++

	for _, rec := range records {
		stats.TotalRecords++
		if len(rec.Line) > len(stats.LongestLine) {
			stats.LongestLine = rec.Line
		}

		cmd := parser.Parse(rec.Line)
		stats.Kinds[cmd.Kind().String()]++
		replayed := protocol.Reply(cmd)

		if cmd.Kind() == protocol.KindUnknown {
			stats.Rejected++
		} else {
			stats.Accepted++
		}

		if rec.Reply == "" {
			// never reached the display: validation failure or a lost port
			stats.NoReply++
			continue
		}
		if rec.Reply != replayed {
			stats.Mismatches = append(stats.Mismatches, Mismatch{
				File:     filename,
				Seq:      rec.Seq,
				Line:     rec.Line,
				Recorded: rec.Reply,
				Replayed: replayed,
			})
		}
	}
}

func printStatistics(stats *Statistics) {
	fmt.Printf("=== Results ===\n")
	fmt.Printf("Files:     %d\n", stats.TotalFiles)
	fmt.Printf("Records:   %d\n", stats.TotalRecords)
	if stats.TotalRecords == 0 {
		return
	}
	fmt.Printf("Accepted:  %d (%.1f%%)\n", stats.Accepted, percent(stats.Accepted, stats.TotalRecords))
	fmt.Printf("Rejected:  %d (%.1f%%)\n", stats.Rejected, percent(stats.Rejected, stats.TotalRecords))
	fmt.Printf("No reply:  %d\n", stats.NoReply)
	fmt.Printf("Longest:   %q (%d bytes, limit %d)\n\n", stats.LongestLine, len(stats.LongestLine), protocol.MaxLineLength)

	fmt.Printf("Command kinds:\n")
	kinds := make([]string, 0, len(stats.Kinds))
	for k := range stats.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("  %-16s %d\n", k, stats.Kinds[k])
	}

	if len(stats.Mismatches) == 0 {
		fmt.Printf("\nEvery recorded reply matches the replay.\n")
		return
	}

	fmt.Printf("\nReply mismatches: %d\n", len(stats.Mismatches))
	for i, m := range stats.Mismatches {
		if i == 20 {
			fmt.Printf("  ... and %d more\n", len(stats.Mismatches)-i)
			break
		}
		fmt.Printf("  %s #%d %q\n    recorded: %s\n    replayed: %s\n",
			filepath.Base(m.File), m.Seq, m.Line, m.Recorded, m.Replayed)
	}
}

func percent(n, total int) float64 {
	return float64(n) * 100 / float64(total)
}
