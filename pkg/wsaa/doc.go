/*
Package wsaa implements the client for WSAA, the ARCA authentication
and authorization web service.

WSAA issues short-lived access tickets. Obtaining one is a three step
dance: build a time-windowed login ticket request (TRA) document, wrap
it in a CMS SignedData envelope using the taxpayer's X.509 certificate
and private key, and submit the base64 encoding of that envelope to the
loginCms operation. The response carries an opaque token/sign pair and
an expiration instant.

# Ticket Caching

Tickets are valid for hours and WSAA rejects a second login while one
is active ("alreadyAuthenticated"), so the Client caches the current
ticket in a TicketStore and only re-authenticates once it has expired.
Concurrent callers observing an expired ticket share a single in-flight
authentication rather than racing the service.

# Usage

	signer, err := wsaa.NewSigner(creds)
	client, err := wsaa.NewClient(signer, "wsfe", transport)
	ticket, err := client.Ticket(ctx)
*/
package wsaa
