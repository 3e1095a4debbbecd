package wsaa

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/sync/singleflight"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
	"github.com/ObregonJeronimo/GestionAR/pkg/soap"
)

const loginNS = "http://wsaa.view.sua.dvadac.desein.afip.gov"

// Caller issues a single SOAP operation. Satisfied by *soap.Client.
type Caller interface {
	Call(ctx context.Context, action string, payload []byte) ([]byte, error)
}

// RetryPolicy governs the already-authenticated recovery path: how many
// delayed retries are attempted after WSAA reports a session clash.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy retries exactly once after 30 seconds, which is
// the interval WSAA documents for session clashes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 1, Delay: 30 * time.Second}
}

// Client obtains and caches WSAA access tickets for one service name.
//
// A call to Ticket returns the cached ticket while it is valid and
// otherwise runs the full build-sign-login sequence. Concurrent callers
// share a single in-flight authentication; WSAA treats parallel logins
// for the same identity as a session clash, so serializing acquisition
// avoids tripping the recovery path in the first place.
type Client struct {
	signer    *Signer
	service   string
	transport Caller
	store     *TicketStore
	retry     RetryPolicy
	now       func() time.Time

	group singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRetryPolicy overrides the already-authenticated retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// NewClient creates an authentication client for the given service
// name, e.g. "wsfe".
func NewClient(signer *Signer, service string, transport Caller, opts ...Option) (*Client, error) {
	if service == "" {
		return nil, &arca.ConfigurationError{Reason: "service name is empty"}
	}
	if transport == nil {
		return nil, &arca.ConfigurationError{Reason: "transport is nil"}
	}

	c := &Client{
		signer:    signer,
		service:   service,
		transport: transport,
		store:     NewTicketStore(),
		retry:     DefaultRetryPolicy(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Store exposes the ticket store, mainly so an operator-facing surface
// can invalidate the cache when credentials change.
func (c *Client) Store() *TicketStore { return c.store }

// Ticket returns a valid access ticket, authenticating against WSAA if
// the cached one is absent or expired.
func (c *Client) Ticket(ctx context.Context) (*AccessTicket, error) {
	if ticket, ok := c.store.Current(c.now()); ok {
		return ticket, nil
	}

	v, err, _ := c.group.Do("login", func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have just
		// stored a fresh ticket.
		if ticket, ok := c.store.Current(c.now()); ok {
			return ticket, nil
		}
		// The flight's outcome is shared by every waiter, so it runs
		// detached from the caller that happened to start it;
		// cancelling that one caller must not fail the rest.
		return c.authenticate(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*AccessTicket), nil
}

// authenticate runs the build-sign-login sequence, absorbing a single
// already-authenticated clash per the retry policy. On failure the
// store is left empty so the next call retries cleanly.
func (c *Client) authenticate(ctx context.Context) (*AccessTicket, error) {
	ticket, err := c.login(ctx)
	for attempt := 0; err != nil && attempt < c.retry.Attempts && isAlreadyAuthenticated(err); attempt++ {
		if werr := sleepCtx(ctx, c.retry.Delay); werr != nil {
			return nil, &arca.TransportError{Op: "waiting to retry login", Err: werr}
		}
		ticket, err = c.login(ctx)
	}
	if err != nil {
		var terr *arca.TransportError
		if errors.As(err, &terr) {
			return nil, err
		}
		var cerr *arca.ConfigurationError
		if errors.As(err, &cerr) {
			return nil, err
		}
		return nil, &arca.AuthenticationError{Reason: "loginCms failed", Err: err}
	}

	c.store.Set(ticket)
	return ticket, nil
}

// login performs one full authentication round trip.
func (c *Client) login(ctx context.Context) (*AccessTicket, error) {
	req, err := NewLoginTicketRequest(c.service, c.now())
	if err != nil {
		return nil, err
	}

	tra, err := req.XML()
	if err != nil {
		return nil, fmt.Errorf("serializing TRA: %w", err)
	}

	cms, err := c.signer.Sign(tra)
	if err != nil {
		return nil, err
	}

	payload, err := loginPayload(cms)
	if err != nil {
		return nil, fmt.Errorf("building loginCms payload: %w", err)
	}

	resp, err := c.transport.Call(ctx, "", payload)
	if err != nil {
		return nil, err
	}

	return parseLoginResponse(resp)
}

func loginPayload(cms string) ([]byte, error) {
	doc := etree.NewDocument()
	op := doc.CreateElement("loginCms")
	op.CreateAttr("xmlns", loginNS)
	op.CreateElement("in0").SetText(cms)
	return doc.WriteToBytes()
}

// loginTicketResponse mirrors the XML document carried inside
// loginCmsReturn.
type loginTicketResponse struct {
	Header struct {
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

func parseLoginResponse(body []byte) (*AccessTicket, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parsing loginCms response: %w", err)
	}

	ret := doc.FindElement("//loginCmsReturn")
	if ret == nil {
		return nil, fmt.Errorf("loginCms response has no loginCmsReturn")
	}

	var ltr loginTicketResponse
	if err := xml.Unmarshal([]byte(ret.Text()), &ltr); err != nil {
		return nil, fmt.Errorf("parsing login ticket response: %w", err)
	}
	if ltr.Credentials.Token == "" || ltr.Credentials.Sign == "" {
		return nil, fmt.Errorf("login ticket response is missing credentials")
	}

	expiration, err := time.Parse(time.RFC3339, ltr.Header.ExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("parsing ticket expiration %q: %w", ltr.Header.ExpirationTime, err)
	}

	return &AccessTicket{
		Token:      ltr.Credentials.Token,
		Sign:       ltr.Credentials.Sign,
		Expiration: expiration,
	}, nil
}

// isAlreadyAuthenticated reports whether the error is the WSAA session
// clash fault (coe.alreadyAuthenticated).
func isAlreadyAuthenticated(err error) bool {
	var fault *soap.Fault
	if !errors.As(err, &fault) {
		return false
	}
	return strings.Contains(fault.Code, "alreadyAuthenticated") ||
		strings.Contains(fault.Reason, "alreadyAuthenticated")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
