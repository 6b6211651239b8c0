package apiserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const credentialHeader = "X-API-Key"

// MintKey generates a fresh plugin API key and its bcrypt hash. The plain
// key is shown once at issue time; only the hash is stored.
func MintKey() (plain, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("apiserver: mint key: %w", err)
	}
	plain = "mk_" + hex.EncodeToString(raw)

	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("apiserver: hash key: %w", err)
	}
	return plain, string(h), nil
}

// requireKey rejects requests whose X-API-Key header does not match a
// stored key. Missing and invalid keys are both 401, per the plugin
// contract.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(credentialHeader)
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("missing API key"))
			return
		}
		ok, err := s.verifyKey(r.Context(), key)
		if err != nil {
			s.logger.Error("key verification failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody("invalid API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) verifyKey(ctx context.Context, key string) (bool, error) {
	hashes, err := s.store.KeyHashes(ctx)
	if err != nil {
		return false, err
	}
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(key)) == nil {
			return true, nil
		}
	}
	return false, nil
}
