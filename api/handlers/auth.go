package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gagliardetto/solana-go"
)

const (
	HeaderSigner          = "X-Signer"
	HeaderSignature       = "X-Signature"
	HeaderTimestamp       = "X-Timestamp"
	HeaderClientSignature = "X-Client-Signature"
	HeaderClientTimestamp = "X-Client-Timestamp"
)

type contextKey int

const (
	signerContextKey contextKey = iota
	bodyContextKey
)

// SignerFromContext returns the wallet that signed the request.
func SignerFromContext(ctx context.Context) (solana.PublicKey, bool) {
	signer, ok := ctx.Value(signerContextKey).(solana.PublicKey)
	return signer, ok
}

func bodyFromContext(ctx context.Context) []byte {
	body, _ := ctx.Value(bodyContextKey).([]byte)
	return body
}

// bufferBody reads the request body once so it can be both authenticated
// and decoded.
func (h *Handler) bufferBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_body", "failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		ctx := context.WithValue(r.Context(), bodyContextKey, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireClientSignature rejects requests that were not signed with the
// shared client secret.
func (h *Handler) requireClientSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature := r.Header.Get(HeaderClientSignature)
		if signature == "" {
			writeError(w, http.StatusUnauthorized, "missing_client_signature", "missing auth headers")
			return
		}
		ts, err := parseTimestamp(r.Header.Get(HeaderClientTimestamp), h.cfg.Clock.Now(), h.cfg.SignatureMaxSkew)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_client_signature", err.Error())
			return
		}
		if !verifyClientSignature(h.cfg.ClientSecret, bodyFromContext(r.Context()), ts, signature) {
			writeError(w, http.StatusUnauthorized, "invalid_client_signature", "invalid signature")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireSigner authenticates the wallet named in X-Signer by its signature
// over the request and stores it in the request context.
func (h *Handler) requireSigner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signerHeader := r.Header.Get(HeaderSigner)
		signature := r.Header.Get(HeaderSignature)
		if signerHeader == "" || signature == "" {
			writeError(w, http.StatusUnauthorized, "missing_signature", "missing signer headers")
			return
		}
		ts, err := parseTimestamp(r.Header.Get(HeaderTimestamp), h.cfg.Clock.Now(), h.cfg.SignatureMaxSkew)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_signature", err.Error())
			return
		}

		msg := SigningMessage(ts, r.Method, r.URL.Path, bodyFromContext(r.Context()))
		valid, err := verifyEd25519Signature(signerHeader, msg, signature)
		if err != nil {
			h.log.Debug("handlers: malformed wallet signature", "signer", signerHeader, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid_signature", "malformed signature")
			return
		}
		if !valid {
			writeError(w, http.StatusUnauthorized, "invalid_signature", "invalid signature")
			return
		}

		signer, err := solana.PublicKeyFromBase58(signerHeader)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_signature", "invalid signer")
			return
		}
		if !h.replay.claim(signer.String() + ":" + signature) {
			writeError(w, http.StatusUnauthorized, "replayed_signature", "signature already used")
			return
		}
		ctx := context.WithValue(r.Context(), signerContextKey, signer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
