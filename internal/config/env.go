package config

import (
    "os"
    "strings"
    "time"
)

// lookup returns the trimmed value of k and whether it was non-empty.
func lookup(k string) (string, bool) {
    v := strings.TrimSpace(os.Getenv(k))
    return v, v != ""
}

func envStr(k, d string) string {
    if v, ok := lookup(k); ok {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    if v, ok := lookup(k); ok {
        return parseBool(v, d)
    }
    return d
}

func envInt(k string, d int) int {
    if v, ok := lookup(k); ok {
        return atoi(v, d)
    }
    return d
}

// envDur parses a Go duration ("90s", "12h"); malformed values fall back
// to d.
func envDur(k string, d time.Duration) time.Duration {
    v, ok := lookup(k)
    if !ok {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
