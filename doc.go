/*
Package gestionar is an electronic invoicing backend for Argentine
taxpayers. It talks to ARCA (the tax authority, formerly AFIP) over its
two SOAP web services and exposes a local HTTP API for a front end.

# Overview

Authorizing a fiscal voucher takes two protocols:

  - WSAA issues short-lived access tickets. The client builds a login
    ticket request, wraps it in a CMS (PKCS#7) signature with the
    taxpayer's certificate, and exchanges it for a token/sign pair.
  - WSFEv1 authorizes vouchers. Each operation carries the ticket pair
    plus the taxpayer's CUIT and returns a CAE, the authorization code
    that makes the voucher legally valid.

# Package Structure

	github.com/ObregonJeronimo/GestionAR/pkg/arca     - shared types: environments, credentials, error taxonomy
	github.com/ObregonJeronimo/GestionAR/pkg/soap     - SOAP 1.1 transport
	github.com/ObregonJeronimo/GestionAR/pkg/wsaa     - WSAA authentication client with ticket caching
	github.com/ObregonJeronimo/GestionAR/pkg/wsfe     - WSFEv1 voucher operations
	github.com/ObregonJeronimo/GestionAR/internal/... - configuration, credential resolution, HTTP API, storage
	github.com/ObregonJeronimo/GestionAR/cmd/gestionar - server entrypoint

# Quick Start

	import (
	    "github.com/ObregonJeronimo/GestionAR/pkg/arca"
	    "github.com/ObregonJeronimo/GestionAR/pkg/soap"
	    "github.com/ObregonJeronimo/GestionAR/pkg/wsaa"
	    "github.com/ObregonJeronimo/GestionAR/pkg/wsfe"
	)

	signer, _ := wsaa.NewSigner(&arca.Credentials{CertPEM: cert, KeyPEM: key, CUIT: cuit})
	auth, _ := wsaa.NewClient(signer, "wsfe", soap.NewClient(arca.Testing.AuthURL(), nil))
	client, _ := wsfe.NewClient(auth, soap.NewClient(arca.Testing.InvoiceURL(), nil), cuit)

	result, err := client.Authorize(ctx, &wsfe.VoucherRequest{ ... })

Vouchers authorized against the production environment are legally
binding; use arca.Testing until the taxpayer's certificate is
certified.
*/
package gestionar
