package controller

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
)

const (
	apiKeyHeader = "X-API-KEY"
	// maxIngestBody bounds a single ingest payload.
	maxIngestBody = 64 << 10
)

// authorized compares the X-API-KEY header with the configured key in
// constant time. An empty configured key rejects every request.
func (c *climateControllerImpl) authorized(r *http.Request) bool {
	if len(c.apiKey) == 0 {
		return false
	}
	got := []byte(r.Header.Get(apiKeyHeader))
	return subtle.ConstantTimeCompare(got, c.apiKey) == 1
}

// parseWindowSize reads the n query parameter. Anything that is not an
// integer falls back to def; n <= 0 is passed through and means "all".
func parseWindowSize(r *http.Request, def int) int {
	s := strings.TrimSpace(r.URL.Query().Get("n"))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// countingWriter records whether anything reached the client, so a failed
// export can still be answered with an error status.
type countingWriter struct {
	w http.ResponseWriter
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
