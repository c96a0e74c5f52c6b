// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  Params      `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server serves the RPC surface.
type Server struct {
	ctrl     Controller
	verifier *Verifier
	timeout  time.Duration
	mux      *http.ServeMux
}

// NewServer routes the RPC endpoints. A nil verifier leaves them open.
func NewServer(ctrl Controller, verifier *Verifier) *Server {
	s := &Server{ctrl: ctrl, verifier: verifier, timeout: 2 * time.Second, mux: http.NewServeMux()}

	s.mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	s.mux.HandleFunc("/rpc", s.protect(s.handleRPC))
	s.mux.HandleFunc("/ws", s.protect(s.handleWS))
	s.mux.HandleFunc("/api/groups", s.protect(s.handleGroups))
	return s
}

func (s *Server) protect(h http.HandlerFunc) http.HandlerFunc {
	if s.verifier == nil {
		return h
	}
	return s.verifier.RequireAuth(h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("rpc: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Printf("rpc: server stopped")
		return nil
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, &Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: CodeParseError, Message: "Parse error"},
		})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeResponse(w, http.StatusBadRequest, &Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: CodeInvalidRequest, Message: "Invalid Request"},
			ID:      req.ID,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	ok, err := Invoke(ctx, s.ctrl, req.Method, req.Params)
	if err != nil {
		code := CodeInternal
		switch {
		case errors.Is(err, ErrMethodNotFound):
			code = CodeMethodNotFound
		case errors.Is(err, ErrInvalidParams):
			code = CodeInvalidParams
		}
		writeResponse(w, http.StatusOK, &Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: code, Message: err.Error()},
			ID:      req.ID,
		})
		return
	}

	writeResponse(w, http.StatusOK, &Response{JSONRPC: "2.0", Result: ok, ID: req.ID})
	log.Printf("rpc: method=%s group=%s result=%v duration=%v", req.Method, req.Params.Group, ok, time.Since(start))
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("rpc: json encode error: %v", err)
	}
}

func writeResponse(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("rpc: json encode error: %v", err)
	}
}
