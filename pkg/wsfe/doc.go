/*
Package wsfe implements the client for WSFEv1, the ARCA electronic
invoicing web service.

The central operation is FECAESolicitar: submit a fiscal voucher
(invoice, credit note or debit note) and receive a CAE, the
authorization code that legally validates it. The package also exposes
the read-only reference queries (voucher types, VAT rate types, points
of sale), the last-authorized-number query used to pick the next
voucher number, voucher lookup, and the service status check.

Every operation first obtains an access ticket from a wsaa.Client and
sends it in the request's Auth header.

# Schema Drift

The authority has published several revisions of the WSFEv1 schema and
its deployments do not all agree on which revision they speak. The
practical casualty is CondicionIVAReceptorId, the receptor's VAT
condition: generic marshalling against an older schema silently drops
the field, and newer deployments reject requests without it. The
serialized request is therefore passed through a repair step
(EnsureReceptorVATCondition) immediately before transmission.

# Voucher Numbering

Voucher numbers are assigned by the caller: query LastAuthorized, add
one, and submit. That read-increment-submit sequence is not atomic
against the authority. Callers that need strictly sequential numbering
must serialize submission per point-of-sale/voucher-type pair
themselves; this package does not do it for them.
*/
package wsfe
