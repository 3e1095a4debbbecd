package soap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
)

const envelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

// Config contains HTTP client configuration
type Config struct {
	MinTLSVersion   uint16
	Timeout         time.Duration
	IdleConnTimeout time.Duration
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *Config {
	return &Config{
		MinTLSVersion:   tls.VersionTLS12,
		Timeout:         30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

// Client sends SOAP 1.1 requests to a single service endpoint
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a client bound to the given endpoint. A nil config
// uses DefaultConfig.
func NewClient(endpoint string, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{MinVersion: config.MinTLSVersion},
		IdleConnTimeout:     config.IdleConnTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Endpoint returns the endpoint URL the client is bound to.
func (c *Client) Endpoint() string { return c.endpoint }

// Fault is a SOAP Fault returned by the remote service
type Fault struct {
	Code   string
	Reason string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Reason)
}

// Call POSTs the payload, wrapped in a SOAP envelope, to the endpoint
// and returns the serialized first child of the response Body.
func (c *Client) Call(ctx context.Context, action string, payload []byte) ([]byte, error) {
	envelope := wrap(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, &arca.TransportError{Op: "building request", Err: err}
	}

	req.Header.Set("Content-Type", `text/xml; charset=utf-8`)
	req.Header.Set("User-Agent", "gestionar/1.0")
	req.Header.Set("SOAPAction", `"`+action+`"`)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &arca.TransportError{Op: "sending request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &arca.TransportError{Op: "reading response", Err: err}
	}

	// Faults arrive with status 500 but still carry a SOAP envelope, so
	// parse the body before deciding on the status code.
	result, err := unwrap(body)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &arca.TransportError{
				Op:  "calling " + action,
				Err: fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(body, 512)),
			}
		}
		return nil, err
	}

	return result, nil
}

// wrap places the payload inside a SOAP 1.1 envelope
func wrap(payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<soapenv:Envelope xmlns:soapenv="` + envelopeNS + `"><soapenv:Body>`)
	buf.Write(payload)
	buf.WriteString(`</soapenv:Body></soapenv:Envelope>`)
	return buf.Bytes()
}

// unwrap extracts the first child of the response Body, surfacing a
// Fault element as a *Fault error.
func unwrap(envelope []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(envelope); err != nil {
		return nil, &arca.TransportError{Op: "parsing response", Err: err}
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, &arca.TransportError{Op: "parsing response", Err: fmt.Errorf("no SOAP envelope in response")}
	}

	body := findChild(root, "Body")
	if body == nil {
		return nil, &arca.TransportError{Op: "parsing response", Err: fmt.Errorf("no SOAP Body in response")}
	}

	if fault := findChild(body, "Fault"); fault != nil {
		return nil, parseFault(fault)
	}

	for _, child := range body.ChildElements() {
		inner := etree.NewDocument()
		inner.SetRoot(child.Copy())
		out, err := inner.WriteToBytes()
		if err != nil {
			return nil, &arca.TransportError{Op: "serializing response", Err: err}
		}
		return out, nil
	}

	return nil, &arca.TransportError{Op: "parsing response", Err: fmt.Errorf("empty SOAP Body")}
}

func parseFault(fault *etree.Element) *Fault {
	f := &Fault{}
	if code := findChild(fault, "faultcode"); code != nil {
		f.Code = strings.TrimSpace(code.Text())
	} else if code := findChild(fault, "Code"); code != nil {
		f.Code = strings.TrimSpace(code.Text())
	}
	if reason := findChild(fault, "faultstring"); reason != nil {
		f.Reason = strings.TrimSpace(reason.Text())
	} else if reason := findChild(fault, "Reason"); reason != nil {
		f.Reason = strings.TrimSpace(reason.Text())
	}
	return f
}

// findChild matches by local name regardless of namespace prefix
func findChild(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
