package middleware

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/garrettladley/chirp/internal/xhttp"
)

const (
	defaultGzipMinSize = 1 << 10
	gzipEncoding       = "gzip"
)

var gzipWriters = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

type gzipConfig struct {
	minSize int
	skip    []string
}

type GzipOption func(*gzipConfig)

// SkipPaths leaves requests to the given exact paths untouched. The socket
// upgrade path must be listed since the handshake needs the raw connection.
func SkipPaths(paths ...string) GzipOption {
	return func(c *gzipConfig) { c.skip = append(c.skip, paths...) }
}

// MinSize sets the smallest body worth compressing.
func MinSize(n int) GzipOption {
	return func(c *gzipConfig) { c.minSize = n }
}

// Gzip compresses JSON and text responses once the body reaches the minimum
// size. Bodies below it are written as-is.
func Gzip(opts ...GzipOption) func(http.Handler) http.Handler {
	cfg := gzipConfig{minSize: defaultGzipMinSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(cfg.skip, r.URL.Path) || !acceptsGzip(r.Header.Get(xhttp.AcceptEncoding)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add(xhttp.Vary, xhttp.AcceptEncoding)

			cw := &compressWriter{ResponseWriter: w, minSize: cfg.minSize, status: http.StatusOK}
			defer cw.finish()

			next.ServeHTTP(cw, r)
		})
	}
}

// compressWriter holds the body until it can tell whether compression pays
// off. After commit every write goes straight to the client, through gz when
// it is set.
type compressWriter struct {
	http.ResponseWriter
	minSize   int
	status    int
	buf       bytes.Buffer
	committed bool
	gz        *gzip.Writer
}

var _ http.Flusher = (*compressWriter)(nil)

func (c *compressWriter) WriteHeader(status int) {
	if !c.committed {
		c.status = status
	}
}

func (c *compressWriter) Write(p []byte) (int, error) {
	if c.committed {
		return c.out().Write(p)
	}
	c.buf.Write(p)
	if c.buf.Len() >= c.minSize {
		if err := c.commit(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (c *compressWriter) Flush() {
	if !c.committed {
		_ = c.commit()
	}
	if c.gz != nil {
		_ = c.gz.Flush()
	}
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (c *compressWriter) Unwrap() http.ResponseWriter { return c.ResponseWriter }

func (c *compressWriter) out() interface{ Write([]byte) (int, error) } {
	if c.gz != nil {
		return c.gz
	}
	return c.ResponseWriter
}

func (c *compressWriter) commit() error {
	c.committed = true

	h := c.Header()
	if c.buf.Len() >= c.minSize && h.Get(xhttp.ContentEncoding) == "" && compressible(h.Get(xhttp.ContentType)) {
		h.Set(xhttp.ContentEncoding, gzipEncoding)
		h.Del(xhttp.ContentLength)
		c.gz = gzipWriters.Get().(*gzip.Writer)
		c.gz.Reset(c.ResponseWriter)
	}

	c.ResponseWriter.WriteHeader(c.status)
	if c.buf.Len() == 0 {
		return nil
	}
	_, err := c.out().Write(c.buf.Bytes())
	c.buf.Reset()
	return err
}

func (c *compressWriter) finish() {
	if !c.committed {
		_ = c.commit()
	}
	if c.gz != nil {
		_ = c.gz.Close()
		gzipWriters.Put(c.gz)
		c.gz = nil
	}
}

func compressible(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.TrimSpace(mediaType)
	return mediaType == "" ||
		strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/json" ||
		strings.HasSuffix(mediaType, "+json")
}

// acceptsGzip reports whether the Accept-Encoding header allows gzip, honouring
// an explicit q=0 and the * wildcard.
func acceptsGzip(header string) bool {
	allowed := false
	for part := range strings.SplitSeq(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding != gzipEncoding && coding != "*" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		if coding == gzipEncoding {
			return q > 0
		}
		allowed = q > 0
	}
	return allowed
}
