// Package idempotency implements the client-key deduplication gate that
// guards every mutating endpoint. A request acquires a short-lived
// processing lock in the KV store; on success the full response is cached
// and replayed verbatim to any retry carrying the same key and payload.
package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tasteos.dev/api"
	"tasteos.dev/common"
	"tasteos.dev/db/repository"
)

// HeaderIdempotencyKey is the client-supplied deduplication key header.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	stateProcessing = "processing"
	stateDone       = "done"
)

// record is the stored form of an idempotency entry.
type record struct {
	State       string `json:"state"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Gate builds the deduplication gates for a fixed pair of TTLs.
type Gate struct {
	kv            repository.KV
	processingTTL time.Duration
	doneTTL       time.Duration
}

// NewGate creates a gate factory over the given KV store.
func NewGate(kv repository.KV, processingTTL, doneTTL time.Duration) *Gate {
	return &Gate{kv: kv, processingTTL: processingTTL, doneTTL: doneTTL}
}

// Middleware returns the Echo middleware guarding one route. routeKey
// names the logical operation (e.g. "cook.session.patch") so the same
// client key may be reused across different routes.
func (g *Gate) Middleware(routeKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientKey := c.Request().Header.Get(HeaderIdempotencyKey)
			if clientKey == "" {
				return common.Validationf("missing %s header", HeaderIdempotencyKey)
			}

			body, err := readAndRestoreBody(c)
			if err != nil {
				return common.Validationf("unreadable request body")
			}
			hash := requestHash(c.Request().Method, c.Request().URL.Path, body)

			key := fmt.Sprintf("idemp:%s:%s:%s", api.WorkspaceID(c), routeKey, clientKey)
			ctx := c.Request().Context()

			if data, err := g.kv.Get(ctx, key); err == nil {
				return g.resolveExisting(c, data, hash)
			} else if err != repository.ErrNotFound {
				return common.Wrap(common.KindTransient, err, "idempotency store unavailable")
			}

			lock, err := json.Marshal(record{State: stateProcessing, RequestHash: hash})
			if err != nil {
				return common.Wrap(common.KindFatal, err, "encode idempotency lock")
			}
			won, err := g.kv.SetNX(ctx, key, lock, g.processingTTL)
			if err != nil {
				return common.Wrap(common.KindTransient, err, "idempotency store unavailable")
			}
			if !won {
				// Lost the insert race; same outcome as finding a
				// processing record.
				return common.Conflictf("request with this idempotency key is still processing")
			}

			rec := newResponseRecorder(c)
			err = next(c)
			rec.restore(c)

			if err != nil || rec.status >= http.StatusBadRequest {
				// Failed handlers never become replayable; drop the lock
				// so the client may retry. Background context: the
				// request context may already be cancelled.
				delCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if delErr := g.kv.Del(delCtx, key); delErr != nil {
					common.Logger.WithError(delErr).Error("failed to release idempotency lock")
				}
				return err
			}

			done, err := json.Marshal(record{
				State:       stateDone,
				RequestHash: hash,
				Status:      rec.status,
				ContentType: rec.contentType(),
				Body:        rec.buf.Bytes(),
			})
			if err != nil {
				return common.Wrap(common.KindFatal, err, "encode idempotency record")
			}
			if err := g.kv.Set(ctx, key, done, g.doneTTL); err != nil {
				common.Logger.WithError(err).Error("failed to store idempotency record")
			}
			return nil
		}
	}
}

// resolveExisting handles a request whose key is already present.
func (g *Gate) resolveExisting(c echo.Context, data []byte, hash string) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return common.Wrap(common.KindFatal, err, "corrupt idempotency record")
	}

	switch {
	case rec.State == stateProcessing && rec.RequestHash == hash:
		return common.Conflictf("request with this idempotency key is still processing")
	case rec.State == stateProcessing:
		return common.Conflictf("idempotency key reused with a different payload")
	case rec.RequestHash != hash:
		return common.Conflictf("idempotency key reused with a different payload")
	default:
		// Replay the stored response verbatim.
		return c.Blob(rec.Status, rec.ContentType, rec.Body)
	}
}

// requestHash is SHA256(method | path | body).
func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte("|"))
	h.Write([]byte(path))
	h.Write([]byte("|"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// readAndRestoreBody drains the request body and replaces it with a
// rewindable copy so the handler can bind it again.
func readAndRestoreBody(c echo.Context) ([]byte, error) {
	req := c.Request()
	if req.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// responseRecorder tees the handler's response so a successful result
// can be cached for replay.
type responseRecorder struct {
	http.ResponseWriter
	prev   http.ResponseWriter
	header http.Header
	status int
	buf    bytes.Buffer
}

func newResponseRecorder(c echo.Context) *responseRecorder {
	rec := &responseRecorder{
		ResponseWriter: c.Response().Writer,
		prev:           c.Response().Writer,
		status:         http.StatusOK,
	}
	c.Response().Writer = rec
	return rec
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) restore(c echo.Context) {
	c.Response().Writer = r.prev
}

func (r *responseRecorder) contentType() string {
	return r.ResponseWriter.Header().Get(echo.HeaderContentType)
}
