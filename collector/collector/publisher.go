package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/derktes/rfsniffer/pulse"
	"github.com/derktes/rfsniffer/store"
)

// Publisher posts recorded buttons to a remote rfsniffer server.
type Publisher struct {
	serverURL *url.URL
	client    *http.Client
	logger    *log.Logger
}

// NewPublisher accepts the server's base URL, e.g. http://pi.local:8080.
func NewPublisher(serverURL string, logger *log.Logger) (*Publisher, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse server url")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("server url %q needs an http(s) scheme and a host", serverURL)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{serverURL: u, client: http.DefaultClient, logger: logger}, nil
}

// URL returns where a button of the given name is published.
func (p *Publisher) URL(name string) string {
	return p.serverURL.String() + "/buttons/" + url.PathEscape(name)
}

// Publish creates the button on the server. A name the server already holds
// yields store.ErrDuplicateName.
func (p *Publisher) Publish(ctx context.Context, name string, proto int, train pulse.Train) error {
	if name == "" {
		return store.ErrEmptyName
	}
	if train == nil {
		train = pulse.Train{}
	}
	body, err := json.Marshal(publishRequest{Protocol: proto, Samples: train})
	if err != nil {
		return errors.Wrap(err, "encode button")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL(name), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "publish %q", name)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		p.logger.Info("published button", "button", name, "transitions", len(train), "status", resp.StatusCode)
		return nil
	case http.StatusConflict:
		return errors.Wrapf(store.ErrDuplicateName, "%q on %s", name, p.serverURL.Host)
	default:
		return errors.Errorf("publish %q: server answered %s", name, resp.Status)
	}
}
