package server

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/derktes/rfsniffer/store"
)

const maxBodyBytes = 8 << 20

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	names, err := s.store.Keys(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) buttonHandler(w http.ResponseWriter, r *http.Request) {
	// parse the URL for the button name and an optional action
	segments := strings.Split(strings.TrimPrefix(r.URL.EscapedPath(), "/buttons/"), "/")
	name, err := url.PathUnescape(segments[0])
	if err != nil || name == "" || len(segments) > 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if len(segments) == 2 {
		if segments[1] != "play" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.play(w, r, name)
		return
	}
	switch r.Method {
	case http.MethodGet:
		b, err := s.store.Lookup(r.Context(), name)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newButtonResponse(b))
	case http.MethodPost:
		s.create(w, r, name)
	case http.MethodDelete:
		if err := s.store.Delete(r.Context(), name); err != nil {
			s.fail(w, err)
			return
		}
		s.logger.Info("deleted button", "button", name)
		s.notifier.publish(changeEvent{eventDeleted, name})
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, name string) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	if err := req.Samples.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	b := store.Button{Name: name, Train: req.Samples, Protocol: req.Protocol}
	if err := s.store.Create(r.Context(), b); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("created button", "button", name, "transitions", len(req.Samples), "remote", r.RemoteAddr)
	s.notifier.publish(changeEvent{eventCreated, name})
	b, err := s.store.Lookup(r.Context(), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newButtonResponse(b))
}

func (s *Server) play(w http.ResponseWriter, r *http.Request, name string) {
	if s.transmit == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{"no transmitter configured"})
		return
	}
	train, err := s.store.Get(r.Context(), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	select {
	case s.hwLock <- struct{}{}:
	case <-r.Context().Done():
		return
	}
	defer func() { <-s.hwLock }()

	if err := s.transmit(r.Context(), train); err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info("played button", "button", name, "transitions", len(train))
	s.notifier.publish(changeEvent{eventPlayed, name})
	writeJSON(w, http.StatusOK, playResponse{name, len(train), train.Total()})
}

func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"localhost:*", "192.168.*.*:*"}})
	if err != nil {
		s.logger.Warn("websocket accept", "err", err)
		return
	}
	s.logger.Debug("accepted websocket request", "remote", r.RemoteAddr)
	defer s.logger.Debug("closing websocket connection", "remote", r.RemoteAddr)
	defer c.Close(websocket.StatusNormalClosure, "handler exits")

	id := getSubscriberID(r.RemoteAddr)
	events, err := s.notifier.subscribe(id)
	if err != nil {
		s.logger.Debug("subscribe", "err", err)
		c.Close(websocket.StatusPolicyViolation, "already subscribed")
		return
	}
	defer s.notifier.unsubscribe(id)

	ctx := c.CloseRead(r.Context())
	for {
		select {
		case e := <-events:
			if err := writeEvent(ctx, c, e); err != nil {
				s.logger.Debug("write event", "err", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// fail maps store errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateName):
		status = http.StatusConflict
	case errors.Is(err, store.ErrEmptyName):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Add("Content-Type", "application/json")
	w.Header().Add("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func getSubscriberID(data string) string {
	h := sha1.Sum([]byte(data))
	return hex.EncodeToString(h[:])
}

func writeEvent(ctx context.Context, c *websocket.Conn, e changeEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, e)
}
