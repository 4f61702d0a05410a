package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hrpay/internal/transport/http/api"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

const (
	IdempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

type ObjectCache interface {
	GetObject(ctx context.Context, key string, dest any) (bool, error)
	SetObject(ctx context.Context, key string, obj any, ttl time.Duration) error
}

type storedResponse struct {
	RequestHash string `json:"requestHash"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore remembers successful responses per company, user,
// endpoint and key.
type IdempotencyStore struct {
	cache ObjectCache
	ttl   time.Duration
}

func NewIdempotencyStore(cache ObjectCache, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{cache: cache, ttl: ttl}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func idempotencyKey(companyID, userID, endpoint, key string) string {
	return "idem:" + companyID + ":" + userID + ":" + endpoint + ":" + key
}

func (s *IdempotencyStore) Check(ctx context.Context, companyID, userID, endpoint, key, requestHash string) (storedResponse, bool, error) {
	if s == nil || s.cache == nil {
		return storedResponse{}, false, nil
	}
	var stored storedResponse
	found, err := s.cache.GetObject(ctx, idempotencyKey(companyID, userID, endpoint, key), &stored)
	if err != nil || !found {
		return storedResponse{}, false, err
	}
	if stored.RequestHash != requestHash {
		return storedResponse{}, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, companyID, userID, endpoint, key string, response storedResponse) error {
	if s == nil || s.cache == nil {
		return nil
	}
	return s.cache.SetObject(ctx, idempotencyKey(companyID, userID, endpoint, key), response, s.ttl)
}

type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *capturingWriter) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when an authenticated caller
// repeats a request with the same Idempotency-Key and body. Reusing a key
// with a different body is rejected with 409. Only 2xx responses are kept.
func Idempotency(store *IdempotencyStore, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			user, authenticated := GetUser(r.Context())
			if key == "" || !authenticated || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			requestID := GetRequestID(r.Context())

			body, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			endpoint := r.Method + " " + r.URL.Path
			hash := RequestHash(append([]byte(endpoint+"\n"), body...))

			stored, found, err := store.Check(r.Context(), user.CompanyID, user.UserID, endpoint, key, hash)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestID)
				return
			case err != nil:
				log.WithError(err).Warn("idempotency lookup failed; processing request")
			case found:
				w.Header().Set("Content-Type", stored.ContentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			capture := &capturingWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			if capture.status < 200 || capture.status >= 300 {
				return
			}
			err = store.Save(r.Context(), user.CompanyID, user.UserID, endpoint, key, storedResponse{
				RequestHash: hash,
				Status:      capture.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err != nil {
				log.WithError(err).Warn("idempotency save failed")
			}
		})
	}
}
