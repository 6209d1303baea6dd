package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (session lifecycle, exports)
	LevelLive    = 2 // Live info (countdown ticks, shots, state changes)
	LevelVerbose = 3 // Verbose (acquisition attempts, negotiation details)
	LevelTrace   = 4 // Trace (GPIO, frame reads, very low level)
)

// recentLimit bounds the rolling diagnostics log exposed to the UI.
const recentLimit = 10

// Entry is one line of the rolling diagnostics log.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

var (
	level  int
	logger *log.Logger

	ringMu sync.Mutex
	ring   []Entry
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (session lifecycle, exports)
// 2 = live info (countdown, shots, state changes)
// 3 = verbose (acquisition attempts, format negotiation)
// 4 = trace (GPIO, frame reads)
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(os.Stdout, "[photobooth] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects log output, e.g. to tee into the web status broadcaster.
func SetOutput(w io.Writer) {
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// record appends to the rolling diagnostics log, dropping the oldest entry
// once the limit is reached. Recording is independent of the console level so
// the UI diagnostics stay useful even with console logging off.
func record(lvl, format string, args ...interface{}) {
	ringMu.Lock()
	ring = append(ring, Entry{
		Time:    time.Now(),
		Level:   lvl,
		Message: fmt.Sprintf(format, args...),
	})
	if len(ring) > recentLimit {
		ring = ring[len(ring)-recentLimit:]
	}
	ringMu.Unlock()
}

// Recent returns a copy of the rolling diagnostics log, oldest first.
func Recent() []Entry {
	ringMu.Lock()
	defer ringMu.Unlock()
	out := make([]Entry, len(ring))
	copy(out, ring)
	return out
}

// ResetRecent clears the rolling diagnostics log.
func ResetRecent() {
	ringMu.Lock()
	ring = nil
	ringMu.Unlock()
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	record("info", format, args...)
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	if level >= LevelOff && logger != nil {
		logger.Printf("═══════════════════════════════════════")
		logger.Printf("  %s", title)
		logger.Printf("═══════════════════════════════════════")
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	record("live", format, args...)
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] "+format, args...)
	}
}

// Transition prints a session state change (level 2).
func Transition(from, to string) {
	record("live", "state %s -> %s", from, to)
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Session state: %s -> %s", from, to)
	}
}

// Countdown prints a countdown tick (level 2).
func Countdown(remaining int) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Countdown: %d", remaining)
	}
}

// Shot prints a photo capture (level 2).
func Shot(n, target int) {
	record("live", "captured photo %d/%d", n, target)
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Photo captured (%d/%d)", n, target)
	}
}

// Export prints a produced export artifact (level 2).
func Export(kind, name string) {
	record("live", "export %s: %s", kind, name)
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Export %s: %s", kind, name)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// Attempt prints one acquisition attempt (level 3).
func Attempt(n int, desc string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Acquisition attempt %d: %s", n, desc)
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Printf("  %s", name)
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] %s: %+v", name, v)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[GPIO] %s pin=%d value=%v", operation, pin, value)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+) and records it in the rolling log.
func Error(err error) {
	record("error", "%v", err)
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}

// Errorf is like Error with formatting.
func Errorf(format string, args ...interface{}) {
	record("error", format, args...)
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] "+format, args...)
	}
}
