package rpc

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"nftmarket/crypto"
)

const jwtLeeway = time.Minute

func unauthorized(message string) *RPCError {
	return &RPCError{Code: codeUnauthorized, Message: message, status: http.StatusUnauthorized}
}

// requireAuth checks the bearer credential of a mutating call made on behalf
// of caller. The shared token authorises any caller; a signed token only
// authorises its subject.
func (s *Server) requireAuth(r *http.Request, caller [20]byte) error {
	if s.cfg.AuthToken == "" && s.cfg.JWTSecret == "" {
		return unauthorized("RPC authentication token not configured")
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return unauthorized("missing Authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return unauthorized("Authorization header must use Bearer scheme")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return unauthorized("missing bearer token")
	}
	if s.cfg.AuthToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) == 1 {
		return nil
	}
	if s.cfg.JWTSecret == "" {
		return unauthorized("invalid RPC credentials")
	}
	subject, err := s.verifyJWT(token)
	if err != nil {
		s.logger.Debug("jwt rejected", "error", err)
		return unauthorized("invalid RPC credentials")
	}
	if subject != caller {
		return &RPCError{Code: codeForbidden, Message: "token subject does not match caller", status: http.StatusForbidden}
	}
	return nil
}

func (s *Server) verifyJWT(raw string) ([20]byte, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(jwtLeeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.JWTIssuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return [20]byte{}, err
	}
	if !token.Valid {
		return [20]byte{}, errors.New("token invalid")
	}
	return crypto.ParseAddress(claims.Subject)
}
