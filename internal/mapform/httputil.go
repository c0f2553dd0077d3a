package mapform

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// addServerTiming appends one Server-Timing entry per name/duration pair.
func addServerTiming(w http.ResponseWriter, kv ...timing) {
	if len(kv) == 0 {
		return
	}
	parts := make([]string, 0, len(kv))
	for _, t := range kv {
		parts = append(parts, fmt.Sprintf("%s;dur=%.1f", t.name, float64(t.d.Microseconds())/1000))
	}
	w.Header().Add("Server-Timing", strings.Join(parts, ", "))
}

type timing struct {
	name string
	d    time.Duration
}
