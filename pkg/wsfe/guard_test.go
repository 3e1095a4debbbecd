package wsfe

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailWithoutCondition = `<FECAESolicitar xmlns="http://ar.gov.afip.dif.FEV1/"><Auth><Token>t</Token><Sign>s</Sign><Cuit>20123456789</Cuit></Auth><FeCAEReq><FeCabReq><CantReg>1</CantReg><PtoVta>1</PtoVta><CbteTipo>6</CbteTipo></FeCabReq><FeDetReq><FECAEDetRequest><Concepto>1</Concepto><DocTipo>99</DocTipo><DocNro>0</DocNro><CanMisMonExt>N</CanMisMonExt><CbteDesde>10</CbteDesde><CbteHasta>10</CbteHasta></FECAEDetRequest></FeDetReq></FeCAEReq></FECAESolicitar>`

func TestEnsureReceptorVATCondition_InsertsAfterDocNro(t *testing.T) {
	out, err := EnsureReceptorVATCondition([]byte(detailWithoutCondition), 5)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))

	det := doc.FindElement("//FECAEDetRequest")
	require.NotNil(t, det)

	cond := det.FindElement("CondicionIVAReceptorId")
	require.NotNil(t, cond)
	assert.Equal(t, "5", cond.Text())

	// Placement matters: immediately after DocNro.
	var tags []string
	for _, child := range det.ChildElements() {
		tags = append(tags, child.Tag)
	}
	assert.Equal(t, []string{"Concepto", "DocTipo", "DocNro", "CondicionIVAReceptorId", "CanMisMonExt", "CbteDesde", "CbteHasta"}, tags)
}

func TestEnsureReceptorVATCondition_Idempotent(t *testing.T) {
	once, err := EnsureReceptorVATCondition([]byte(detailWithoutCondition), 5)
	require.NoError(t, err)

	twice, err := EnsureReceptorVATCondition(once, 5)
	require.NoError(t, err)

	assert.Equal(t, once, twice)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(twice))
	assert.Len(t, doc.FindElements("//CondicionIVAReceptorId"), 1)
}

func TestEnsureReceptorVATCondition_PresentFieldUntouched(t *testing.T) {
	withCondition := []byte(`<FECAESolicitar><FeCAEReq><FeDetReq><FECAEDetRequest><DocNro>0</DocNro><CondicionIVAReceptorId>1</CondicionIVAReceptorId></FECAEDetRequest></FeDetReq></FeCAEReq></FECAESolicitar>`)

	out, err := EnsureReceptorVATCondition(withCondition, 5)
	require.NoError(t, err)
	assert.Equal(t, withCondition, out)
}

func TestEnsureReceptorVATCondition_MissingAnchor(t *testing.T) {
	noAnchor := []byte(`<FECAESolicitar><FeCAEReq><FeDetReq><FECAEDetRequest><Concepto>1</Concepto></FECAEDetRequest></FeDetReq></FeCAEReq></FECAESolicitar>`)

	_, err := EnsureReceptorVATCondition(noAnchor, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DocNro")
}

func TestEnsureReceptorVATCondition_MultipleDetails(t *testing.T) {
	two := []byte(`<FECAESolicitar><FeCAEReq><FeDetReq><FECAEDetRequest><DocNro>1</DocNro></FECAEDetRequest><FECAEDetRequest><DocNro>2</DocNro></FECAEDetRequest></FeDetReq></FeCAEReq></FECAESolicitar>`)

	out, err := EnsureReceptorVATCondition(two, 5)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	assert.Len(t, doc.FindElements("//CondicionIVAReceptorId"), 2)
}
