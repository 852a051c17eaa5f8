// Command analyze prints quick, human-readable statistics about the archive
// of finished matches written by the server. It summarizes how many games
// were played, wins per seat and per player name, how games ended (line or
// timeout) and the average length of a match, overall and per preset.
//
// Usage: analyze [results-dir]   (default results)
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
	"github.com/wricardo/gobblets/game/session"
)

// PresetStats aggregates the matches played with one preset
type PresetStats struct {
	Games         int
	TotalMoves    int
	TotalDuration time.Duration
}

// Summary is the aggregate view of an archive
type Summary struct {
	Games         int
	LineWins      int
	TimeoutWins   int
	SeatWins      map[engine.PlayerID]int
	PlayerWins    map[string]int
	Presets       map[string]*PresetStats
	TotalMoves    int
	TotalDuration time.Duration
	Shortest      *service.MatchResult
	Longest       *service.MatchResult
}

// AverageMoves returns the mean number of placements per match
func (s *Summary) AverageMoves() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.TotalMoves) / float64(s.Games)
}

// AverageDuration returns the mean wall-clock length of a match
func (s *Summary) AverageDuration() time.Duration {
	if s.Games == 0 {
		return 0
	}
	return (s.TotalDuration / time.Duration(s.Games)).Round(time.Second)
}

func summarize(results []*service.MatchResult) *Summary {
	s := &Summary{
		SeatWins:   make(map[engine.PlayerID]int),
		PlayerWins: make(map[string]int),
		Presets:    make(map[string]*PresetStats),
	}

	for _, r := range results {
		s.Games++
		switch r.Reason {
		case engine.WinByLine:
			s.LineWins++
		case engine.WinByTimeout:
			s.TimeoutWins++
		}
		s.SeatWins[r.Winner]++
		if r.WinnerName != "" {
			s.PlayerWins[r.WinnerName]++
		}

		d := r.Duration()
		s.TotalMoves += r.Moves
		s.TotalDuration += d

		preset := r.ConfigName
		if preset == "" {
			preset = "(unknown)"
		}
		p, ok := s.Presets[preset]
		if !ok {
			p = &PresetStats{}
			s.Presets[preset] = p
		}
		p.Games++
		p.TotalMoves += r.Moves
		p.TotalDuration += d

		if s.Shortest == nil || r.Moves < s.Shortest.Moves {
			s.Shortest = r
		}
		if s.Longest == nil || r.Moves > s.Longest.Moves {
			s.Longest = r
		}
	}

	return s
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

func printSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Games: %d\n", s.Games)
	if s.Games == 0 {
		fmt.Fprintln(w, "No finished matches archived yet")
		return
	}

	fmt.Fprintf(w, "Won by line: %d (%.0f%%)\n", s.LineWins, percent(s.LineWins, s.Games))
	fmt.Fprintf(w, "Won on time: %d (%.0f%%)\n", s.TimeoutWins, percent(s.TimeoutWins, s.Games))
	fmt.Fprintf(w, "Average moves: %.1f\n", s.AverageMoves())
	fmt.Fprintf(w, "Average duration: %s\n", s.AverageDuration())

	fmt.Fprintln(w, "\n=== Wins by seat ===")
	for _, id := range []engine.PlayerID{engine.FirstPlayerID, engine.SecondPlayerID} {
		fmt.Fprintf(w, "%s: %d (%.0f%%)\n", id, s.SeatWins[id], percent(s.SeatWins[id], s.Games))
	}

	fmt.Fprintln(w, "\n=== Wins by player ===")
	names := make([]string, 0, len(s.PlayerWins))
	for name := range s.PlayerWins {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.PlayerWins[names[i]] != s.PlayerWins[names[j]] {
			return s.PlayerWins[names[i]] > s.PlayerWins[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(w, "%s: %d\n", name, s.PlayerWins[name])
	}

	fmt.Fprintln(w, "\n=== By preset ===")
	presets := make([]string, 0, len(s.Presets))
	for name := range s.Presets {
		presets = append(presets, name)
	}
	sort.Strings(presets)
	for _, name := range presets {
		p := s.Presets[name]
		fmt.Fprintf(w, "%s: %d games, %.1f moves avg, %s avg\n", name, p.Games,
			float64(p.TotalMoves)/float64(p.Games),
			(p.TotalDuration / time.Duration(p.Games)).Round(time.Second))
	}

	fmt.Fprintln(w, "\n=== Extremes ===")
	fmt.Fprintf(w, "Shortest: %d moves (session %s, %s by %s)\n",
		s.Shortest.Moves, s.Shortest.SessionID, s.Shortest.WinnerName, s.Shortest.Reason)
	fmt.Fprintf(w, "Longest: %d moves (session %s, %s by %s)\n",
		s.Longest.Moves, s.Longest.SessionID, s.Longest.WinnerName, s.Longest.Reason)
}

func main() {
	resultsDir := "results"
	if len(os.Args) > 1 {
		resultsDir = os.Args[1]
	}

	if _, err := os.Stat(resultsDir); os.IsNotExist(err) {
		fmt.Printf("Results directory %s does not exist\n", resultsDir)
		os.Exit(1)
	}

	store, err := session.NewFileResultStore(resultsDir)
	if err != nil {
		fmt.Printf("Error opening results: %v\n", err)
		os.Exit(1)
	}

	results, err := store.ListResults()
	if err != nil {
		fmt.Printf("Error reading results: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Analyzing %s ===\n", resultsDir)
	printSummary(os.Stdout, summarize(results))
}
