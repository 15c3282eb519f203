package rpc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Server limits, mirroring the relay's.
const (
	maxRequestBody  = 1 << 20  // 1 MiB cap for incoming JSON bodies
	maxPostContent  = 64 << 10 // 64 KiB max envelope content
	maxPokeContent  = 1 << 10  // 1 KiB max sealed poke content
	maxBoxEntries   = 10000    // cap entries kept per box
	maxPokesPending = 1000     // cap pokes kept per box
)

type ctxKey string

const ctxKeyReqID ctxKey = "reqid"

// box is one address's postal box: its published bundle, the
// append-only log of posted envelopes, and its pending poke queue.
type box struct {
	bundle    bundleWire
	hasBund   bool
	entries   []entryWire
	nextIndex uint64 // next Index to assign; survives eviction from entries
	pokes     []pokeWire
}

// state holds every registered box, guarded by a single RWMutex. Real
// deployments would back this by the chain contract itself; this is
// the in-memory stand-in the rest of the system talks to over HTTP.
type state struct {
	mu   sync.RWMutex
	boxs map[string]*box
}

func newState() *state {
	return &state{boxs: make(map[string]*box)}
}

func (s *state) box(address string) *box {
	b, ok := s.boxs[address]
	if !ok {
		b = &box{}
		s.boxs[address] = b
	}
	return b
}

// Server is the HTTP handler for the postal-box contract sidecar.
type Server struct {
	state         *state
	enableLogging bool
}

// NewServer constructs a Server. enableLogging turns on structured
// access logging via log/slog.
func NewServer(enableLogging bool) *Server {
	return &Server{state: newState(), enableLogging: enableLogging}
}

// Handler builds the routed http.Handler for this server.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mws := []func(http.HandlerFunc) http.HandlerFunc{withRecover, withReqID, srv.withLogging}

	mux.HandleFunc("POST /box/{address}", chain(srv.handleRegister, mws...))
	mux.HandleFunc("GET /box/{address}", chain(srv.handleFetchBundle, mws...))
	mux.HandleFunc("POST /box/{address}/post", chain(srv.handlePost, mws...))
	mux.HandleFunc("GET /box/{address}/entries", chain(srv.handleFetch, mws...))
	mux.HandleFunc("POST /box/{address}/poke", chain(srv.handlePoke, mws...))
	mux.HandleFunc("GET /box/{address}/pokes", chain(srv.handleFetchPokes, mws...))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

// --- Middleware, grounded on the relay's chain() of recover/reqid/logging ---

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(p []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(p)
	lrw.bytes += n
	return n, err
}

func withRecover(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeErr(w, http.StatusInternalServerError, "internal error")
				slog.Error("panic", "err", rec)
			}
		}()
		h(w, r)
	}
}

func withReqID(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = genReqID()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), ctxKeyReqID, id)
		h(w, r.WithContext(ctx))
	}
}

func (srv *Server) withLogging(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !srv.enableLogging {
			h(w, r)
			return
		}
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w}
		h(lrw, r)
		slog.Info("access",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", clientIP(r),
			"status", lrw.status,
			"bytes", lrw.bytes,
			"dur", time.Since(start),
			"reqid", requestIDFromCtx(r.Context()),
		)
	}
}

func chain(h http.HandlerFunc, mws ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// --- Utilities ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode error: %v", err), http.StatusInternalServerError)
	}
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func parseLimit(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	return n, nil
}

func parseSince(v string) (uint64, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid since")
	}
	return n, nil
}

func clientIP(r *http.Request) string {
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyReqID).(string); ok {
		return v
	}
	return ""
}

func genReqID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// --- Handlers ---

func (srv *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	address := r.PathValue("address")
	if address == "" {
		writeErr(w, http.StatusBadRequest, "address required")
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var wired bundleWire
	if err := dec.Decode(&wired); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if _, err := wired.toDomain(); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	srv.state.mu.Lock()
	b := srv.state.box(address)
	b.bundle = wired
	b.hasBund = true
	srv.state.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleFetchBundle(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	srv.state.mu.RLock()
	b, ok := srv.state.boxs[address]
	var wired bundleWire
	if ok {
		wired = b.bundle
	}
	has := ok && b.hasBund
	srv.state.mu.RUnlock()

	if !has {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, wired)
}

func (srv *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	address := r.PathValue("address")
	if address == "" {
		writeErr(w, http.StatusBadRequest, "address required")
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var body postWire
	if err := dec.Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(body.Content) > maxPostContent {
		writeErr(w, http.StatusRequestEntityTooLarge, "content too large")
		return
	}

	srv.state.mu.Lock()
	b := srv.state.box(address)
	// Indices start at 1 so a fresh cursor of 0 (Fetch's "since" zero
	// value / Session.LatestMessageTimestamp before anything's been
	// consumed) still returns the first entry ever posted. nextIndex is
	// tracked separately from len(entries) so eviction below doesn't
	// cause index reuse.
	b.nextIndex++
	b.entries = append(b.entries, entryWire{Index: b.nextIndex, Content: body.Content, Timestamp: time.Now().Unix()})
	if len(b.entries) > maxBoxEntries {
		b.entries = b.entries[len(b.entries)-maxBoxEntries:]
	}
	srv.state.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad since")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad limit")
		return
	}

	srv.state.mu.RLock()
	b, ok := srv.state.boxs[address]
	var matched []entryWire
	if ok {
		for _, e := range b.entries {
			if e.Index > since {
				matched = append(matched, e)
			}
		}
	}
	srv.state.mu.RUnlock()

	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []entryWire{}
	}
	writeJSON(w, matched)
}

func (srv *Server) handlePoke(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	address := r.PathValue("address")
	if address == "" {
		writeErr(w, http.StatusBadRequest, "address required")
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var body pokeBodyWire
	if err := dec.Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(body.Sealed) > maxPokeContent {
		writeErr(w, http.StatusRequestEntityTooLarge, "sealed content too large")
		return
	}

	srv.state.mu.Lock()
	b := srv.state.box(address)
	b.pokes = append(b.pokes, pokeWire{Content: body.Sealed, Timestamp: time.Now().Unix()})
	if len(b.pokes) > maxPokesPending {
		b.pokes = b.pokes[len(b.pokes)-maxPokesPending:]
	}
	srv.state.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// handleFetchPokes drains and returns address's poke queue. Pokes are
// one-shot: once delivered to a client they're gone, since a poke's
// whole point is "wake up and republish", not a durable log.
func (srv *Server) handleFetchPokes(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")

	srv.state.mu.Lock()
	b, ok := srv.state.boxs[address]
	var pokes []pokeWire
	if ok {
		pokes = b.pokes
		b.pokes = nil
	}
	srv.state.mu.Unlock()

	if pokes == nil {
		pokes = []pokeWire{}
	}
	writeJSON(w, pokes)
}
