package wsaa

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/smallstep/pkcs7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ObregonJeronimo/GestionAR/pkg/arca"
	"github.com/ObregonJeronimo/GestionAR/pkg/soap"
)

type fakeTransport struct {
	mu       sync.Mutex
	calls    int
	lastBody []byte
	handler  func(call int, payload []byte) ([]byte, error)
}

func (f *fakeTransport) Call(ctx context.Context, action string, payload []byte) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.lastBody = payload
	f.mu.Unlock()
	return f.handler(call, payload)
}

// loginResponseXML builds the body the SOAP layer hands back for a
// successful loginCms call: the ticket document travels XML-escaped
// inside loginCmsReturn.
func loginResponseXML(t *testing.T, token, sign string, expiration time.Time) []byte {
	t.Helper()

	inner := fmt.Sprintf(
		`<loginTicketResponse version="1.0"><header><expirationTime>%s</expirationTime></header><credentials><token>%s</token><sign>%s</sign></credentials></loginTicketResponse>`,
		expiration.Format(time.RFC3339), token, sign,
	)

	doc := etree.NewDocument()
	resp := doc.CreateElement("loginCmsResponse")
	resp.CreateElement("loginCmsReturn").SetText(inner)

	data, err := doc.WriteToBytes()
	require.NoError(t, err)
	return data
}

func newTestClient(t *testing.T, transport Caller, opts ...Option) *Client {
	t.Helper()

	signer, err := NewSigner(testCredentials(t))
	require.NoError(t, err)

	client, err := NewClient(signer, "wsfe", transport, opts...)
	require.NoError(t, err)
	return client
}

func TestClientTicket_AuthenticatesAndCaches(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		return loginResponseXML(t, "tok-1", "sig-1", now.Add(12*time.Hour)), nil
	}

	client := newTestClient(t, transport, WithClock(func() time.Time { return now }))

	ticket, err := client.Ticket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", ticket.Token)
	assert.Equal(t, "sig-1", ticket.Sign)

	// Second call is served from the store.
	again, err := client.Ticket(context.Background())
	require.NoError(t, err)
	assert.Same(t, ticket, again)
	assert.Equal(t, 1, transport.calls)
}

func TestClientTicket_RequestCarriesSignedTRA(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		return loginResponseXML(t, "tok", "sig", now.Add(12*time.Hour)), nil
	}

	client := newTestClient(t, transport, WithClock(func() time.Time { return now }))
	_, err := client.Ticket(context.Background())
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(transport.lastBody))

	op := doc.Root()
	require.NotNil(t, op)
	assert.Equal(t, "loginCms", op.Tag)
	assert.Equal(t, loginNS, op.SelectAttrValue("xmlns", ""))

	in0 := op.FindElement("in0")
	require.NotNil(t, in0)

	der, err := base64.StdEncoding.DecodeString(in0.Text())
	require.NoError(t, err)

	p7, err := pkcs7.Parse(der)
	require.NoError(t, err)
	assert.Contains(t, string(p7.Content), "<loginTicketRequest")
	assert.Contains(t, string(p7.Content), "<service>wsfe</service>")
}

func TestClientTicket_ConcurrentCallersShareOneLogin(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		// Keep the login slow enough that every goroutine observes an
		// empty store before the first one finishes.
		time.Sleep(50 * time.Millisecond)
		return loginResponseXML(t, "tok", "sig", now.Add(12*time.Hour)), nil
	}

	client := newTestClient(t, transport, WithClock(func() time.Time { return now }))

	const callers = 16
	var wg sync.WaitGroup
	tickets := make([]*AccessTicket, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i], errs[i] = client.Ticket(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, tickets[i])
		assert.Equal(t, "tok", tickets[i].Token)
	}
	assert.Equal(t, 1, transport.calls)
}

func TestClientTicket_WinnerCancellationDoesNotFailWaiters(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	entered := make(chan struct{})
	release := make(chan struct{})
	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		close(entered)
		<-release
		return loginResponseXML(t, "tok", "sig", now.Add(12*time.Hour)), nil
	}

	client := newTestClient(t, transport, WithClock(func() time.Time { return now }))

	winnerCtx, cancel := context.WithCancel(context.Background())
	winnerDone := make(chan struct{})
	go func() {
		defer close(winnerDone)
		client.Ticket(winnerCtx)
	}()

	// Wait until the winner's flight is in the transport, then join it
	// with a live context and cancel the winner.
	<-entered

	waiterDone := make(chan error, 1)
	var waiterTicket *AccessTicket
	go func() {
		ticket, err := client.Ticket(context.Background())
		waiterTicket = ticket
		waiterDone <- err
	}()

	cancel()
	close(release)

	require.NoError(t, <-waiterDone)
	require.NotNil(t, waiterTicket)
	assert.Equal(t, "tok", waiterTicket.Token)
	<-winnerDone

	assert.Equal(t, 1, transport.calls)
}

func TestClientTicket_ReauthenticatesAfterExpiry(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		return loginResponseXML(t, fmt.Sprintf("tok-%d", call), "sig", now.Add(time.Hour)), nil
	}

	client := newTestClient(t, transport, WithClock(func() time.Time { return now }))

	first, err := client.Ticket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", first.Token)

	now = now.Add(2 * time.Hour)

	second, err := client.Ticket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", second.Token)
	assert.Equal(t, 2, transport.calls)
}

func TestClientTicket_AlreadyAuthenticatedRetries(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		if call == 1 {
			return nil, &soap.Fault{Code: "ns1:coe.alreadyAuthenticated", Reason: "El CEE ya posee un TA valido"}
		}
		return loginResponseXML(t, "tok", "sig", now.Add(12*time.Hour)), nil
	}

	client := newTestClient(t, transport,
		WithClock(func() time.Time { return now }),
		WithRetryPolicy(RetryPolicy{Attempts: 1, Delay: 0}),
	)

	ticket, err := client.Ticket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", ticket.Token)
	assert.Equal(t, 2, transport.calls)
}

func TestClientTicket_AlreadyAuthenticatedExhausted(t *testing.T) {
	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		return nil, &soap.Fault{Code: "ns1:coe.alreadyAuthenticated", Reason: "El CEE ya posee un TA valido"}
	}

	client := newTestClient(t, transport,
		WithRetryPolicy(RetryPolicy{Attempts: 1, Delay: 0}),
	)

	_, err := client.Ticket(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, transport.calls)

	var aerr *arca.AuthenticationError
	assert.ErrorAs(t, err, &aerr)
}

func TestClientTicket_TransportErrorPassesThrough(t *testing.T) {
	transport := &fakeTransport{}
	transport.handler = func(call int, payload []byte) ([]byte, error) {
		return nil, &arca.TransportError{Op: "sending request", Err: fmt.Errorf("connection refused")}
	}

	client := newTestClient(t, transport)

	_, err := client.Ticket(context.Background())
	require.Error(t, err)

	var terr *arca.TransportError
	assert.ErrorAs(t, err, &terr)

	var aerr *arca.AuthenticationError
	assert.False(t, errors.As(err, &aerr), "transport failures must not be rewrapped")
}

func TestParseLoginResponse_MissingReturn(t *testing.T) {
	_, err := parseLoginResponse([]byte(`<loginCmsResponse/>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loginCmsReturn")
}

func TestParseLoginResponse_MissingCredentials(t *testing.T) {
	body := loginResponseXML(t, "", "", time.Now().Add(time.Hour))
	_, err := parseLoginResponse(body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing credentials")
}
