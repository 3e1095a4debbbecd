package wsfe

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
)

// EnsureReceptorVATCondition inspects a serialized FECAESolicitar
// request and inserts a CondicionIVAReceptorId element with the given
// value into every detail record that lacks one. The element goes
// immediately after DocNro, where current schema revisions place it.
//
// This is the compatibility shim for schema drift between WSFEv1
// deployments: marshalling against an older schema drops the field and
// newer deployments reject the request without it. The repair is
// idempotent and leaves every other field untouched; if nothing is
// missing the input is returned unchanged.
func EnsureReceptorVATCondition(request []byte, condition int) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(request); err != nil {
		return nil, fmt.Errorf("parsing request for repair: %w", err)
	}

	changed := false
	for _, det := range doc.FindElements("//FECAEDetRequest") {
		if det.FindElement("CondicionIVAReceptorId") != nil {
			continue
		}

		anchor := childTokenIndex(det, "DocNro")
		if anchor < 0 {
			return nil, fmt.Errorf("detail record has no DocNro anchor")
		}

		elem := etree.NewElement("CondicionIVAReceptorId")
		elem.SetText(strconv.Itoa(condition))
		det.InsertChildAt(anchor+1, elem)
		changed = true
	}

	if !changed {
		return request, nil
	}
	return doc.WriteToBytes()
}

// childTokenIndex returns the token index of the first child element
// with the given tag, or -1. Token index, not element index: character
// data between elements counts, so the result is safe to hand to
// InsertChildAt.
func childTokenIndex(parent *etree.Element, tag string) int {
	for i, token := range parent.Child {
		if el, ok := token.(*etree.Element); ok && el.Tag == tag {
			return i
		}
	}
	return -1
}
