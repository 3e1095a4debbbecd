package wsfe

import "encoding/xml"

// serviceNS is the WSFEv1 document namespace; SOAPAction values are
// serviceNS + operation name.
const serviceNS = "http://ar.gov.afip.dif.FEV1/"

// Auth is the authentication header every WSFEv1 operation carries:
// the WSAA ticket pair plus the issuer's CUIT.
type Auth struct {
	Token string `xml:"Token"`
	Sign  string `xml:"Sign"`
	Cuit  int64  `xml:"Cuit"`
}

// Request documents

type feCAESolicitar struct {
	XMLName  xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECAESolicitar"`
	Auth     Auth     `xml:"Auth"`
	FeCAEReq feCAEReq `xml:"FeCAEReq"`
}

type feCAEReq struct {
	FeCabReq feCabReq `xml:"FeCabReq"`
	FeDetReq feDetReq `xml:"FeDetReq"`
}

type feCabReq struct {
	CantReg  int `xml:"CantReg"`
	PtoVta   int `xml:"PtoVta"`
	CbteTipo int `xml:"CbteTipo"`
}

type feDetReq struct {
	FECAEDetRequest []feCAEDetRequest `xml:"FECAEDetRequest"`
}

// feCAEDetRequest is the wire-level detail record for one voucher.
//
// CondicionIVAReceptorId carries omitempty because older schema
// revisions do not define it; the schema-drift guard reinserts it into
// the serialized document when marshalling dropped it.
type feCAEDetRequest struct {
	Concepto               int        `xml:"Concepto"`
	DocTipo                int        `xml:"DocTipo"`
	DocNro                 int64      `xml:"DocNro"`
	CondicionIVAReceptorId int        `xml:"CondicionIVAReceptorId,omitempty"`
	CanMisMonExt           string     `xml:"CanMisMonExt"`
	CbteDesde              int64      `xml:"CbteDesde"`
	CbteHasta              int64      `xml:"CbteHasta"`
	CbteFch                string     `xml:"CbteFch"`
	ImpTotal               float64    `xml:"ImpTotal"`
	ImpTotConc             float64    `xml:"ImpTotConc"`
	ImpNeto                float64    `xml:"ImpNeto"`
	ImpOpEx                float64    `xml:"ImpOpEx"`
	ImpIVA                 float64    `xml:"ImpIVA"`
	ImpTrib                float64    `xml:"ImpTrib"`
	FchServDesde           string     `xml:"FchServDesde,omitempty"`
	FchServHasta           string     `xml:"FchServHasta,omitempty"`
	FchVtoPago             string     `xml:"FchVtoPago,omitempty"`
	MonId                  string     `xml:"MonId"`
	MonCotiz               float64    `xml:"MonCotiz"`
	CbtesAsoc              *cbtesAsoc `xml:"CbtesAsoc,omitempty"`
	Tributos               *tributos  `xml:"Tributos,omitempty"`
	Iva                    *ivaList   `xml:"Iva,omitempty"`
}

type cbtesAsoc struct {
	CbteAsoc []cbteAsoc `xml:"CbteAsoc"`
}

type cbteAsoc struct {
	Tipo   int   `xml:"Tipo"`
	PtoVta int   `xml:"PtoVta"`
	Nro    int64 `xml:"Nro"`
}

type tributos struct {
	Tributo []tributo `xml:"Tributo"`
}

type tributo struct {
	Id      int     `xml:"Id"`
	Desc    string  `xml:"Desc,omitempty"`
	BaseImp float64 `xml:"BaseImp"`
	Alic    float64 `xml:"Alic"`
	Importe float64 `xml:"Importe"`
}

type ivaList struct {
	AlicIva []alicIva `xml:"AlicIva"`
}

type alicIva struct {
	Id      int     `xml:"Id"`
	BaseImp float64 `xml:"BaseImp"`
	Importe float64 `xml:"Importe"`
}

type feCompUltimoAutorizado struct {
	XMLName  xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FECompUltimoAutorizado"`
	Auth     Auth     `xml:"Auth"`
	PtoVta   int      `xml:"PtoVta"`
	CbteTipo int      `xml:"CbteTipo"`
}

type feCompConsultar struct {
	XMLName xml.Name      `xml:"http://ar.gov.afip.dif.FEV1/ FECompConsultar"`
	Auth    Auth          `xml:"Auth"`
	Req     feCompConsReq `xml:"FeCompConsReq"`
}

type feCompConsReq struct {
	CbteTipo int   `xml:"CbteTipo"`
	CbteNro  int64 `xml:"CbteNro"`
	PtoVta   int   `xml:"PtoVta"`
}

type feDummy struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEDummy"`
}

type feParamGetTiposCbte struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetTiposCbte"`
	Auth    Auth     `xml:"Auth"`
}

type feParamGetTiposIva struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetTiposIva"`
	Auth    Auth     `xml:"Auth"`
}

type feParamGetPtosVenta struct {
	XMLName xml.Name `xml:"http://ar.gov.afip.dif.FEV1/ FEParamGetPtosVenta"`
	Auth    Auth     `xml:"Auth"`
}

// Response documents. Tags match by local name; the namespace is left
// unqualified so responses parse regardless of prefixing.

type wireErr struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type wireErrors struct {
	Err []wireErr `xml:"Err"`
}

type wireObservations struct {
	Obs []wireErr `xml:"Obs"`
}

type feCAESolicitarResponse struct {
	Result struct {
		FeCabResp struct {
			Resultado string `xml:"Resultado"`
		} `xml:"FeCabResp"`
		FeDetResp struct {
			FECAEDetResponse []feCAEDetResponse `xml:"FECAEDetResponse"`
		} `xml:"FeDetResp"`
		Errors *wireErrors `xml:"Errors"`
	} `xml:"FECAESolicitarResult"`
}

type feCAEDetResponse struct {
	Concepto      int               `xml:"Concepto"`
	DocTipo       int               `xml:"DocTipo"`
	DocNro        int64             `xml:"DocNro"`
	CbteDesde     int64             `xml:"CbteDesde"`
	CbteHasta     int64             `xml:"CbteHasta"`
	CbteFch       string            `xml:"CbteFch"`
	Resultado     string            `xml:"Resultado"`
	CAE           string            `xml:"CAE"`
	CAEFchVto     string            `xml:"CAEFchVto"`
	Observaciones *wireObservations `xml:"Observaciones"`
}

type feCompUltimoAutorizadoResponse struct {
	Result struct {
		PtoVta   int         `xml:"PtoVta"`
		CbteTipo int         `xml:"CbteTipo"`
		CbteNro  int64       `xml:"CbteNro"`
		Errors   *wireErrors `xml:"Errors"`
	} `xml:"FECompUltimoAutorizadoResult"`
}

type feCompConsultarResponse struct {
	Result struct {
		ResultGet voucherDetail `xml:"ResultGet"`
		Errors    *wireErrors   `xml:"Errors"`
	} `xml:"FECompConsultarResult"`
}

type voucherDetail struct {
	Concepto        int    `xml:"Concepto"`
	DocTipo         int    `xml:"DocTipo"`
	DocNro          int64  `xml:"DocNro"`
	CbteDesde       int64  `xml:"CbteDesde"`
	CbteHasta       int64  `xml:"CbteHasta"`
	CbteFch         string `xml:"CbteFch"`
	ImpTotal        float64 `xml:"ImpTotal"`
	ImpNeto         float64 `xml:"ImpNeto"`
	ImpIVA          float64 `xml:"ImpIVA"`
	MonId           string `xml:"MonId"`
	MonCotiz        float64 `xml:"MonCotiz"`
	Resultado       string `xml:"Resultado"`
	CodAutorizacion string `xml:"CodAutorizacion"`
	FchVto          string `xml:"FchVto"`
	EmisionTipo     string `xml:"EmisionTipo"`
}

type feDummyResponse struct {
	Result struct {
		AppServer  string `xml:"AppServer"`
		DbServer   string `xml:"DbServer"`
		AuthServer string `xml:"AuthServer"`
	} `xml:"FEDummyResult"`
}

type feParamGetTiposCbteResponse struct {
	Result paramResult `xml:"FEParamGetTiposCbteResult"`
}

type feParamGetTiposIvaResponse struct {
	Result struct {
		ResultGet struct {
			IvaTipo []paramEntry `xml:"IvaTipo"`
		} `xml:"ResultGet"`
		Errors *wireErrors `xml:"Errors"`
	} `xml:"FEParamGetTiposIvaResult"`
}

type paramResult struct {
	ResultGet struct {
		CbteTipo []paramEntry `xml:"CbteTipo"`
	} `xml:"ResultGet"`
	Errors *wireErrors `xml:"Errors"`
}

type paramEntry struct {
	Id       int    `xml:"Id"`
	Desc     string `xml:"Desc"`
	FchDesde string `xml:"FchDesde"`
	FchHasta string `xml:"FchHasta"`
}

type feParamGetPtosVentaResponse struct {
	Result struct {
		ResultGet struct {
			PtoVenta []ptoVenta `xml:"PtoVenta"`
		} `xml:"ResultGet"`
		Errors *wireErrors `xml:"Errors"`
	} `xml:"FEParamGetPtosVentaResult"`
}

type ptoVenta struct {
	Nro         int    `xml:"Nro"`
	EmisionTipo string `xml:"EmisionTipo"`
	Bloqueado   string `xml:"Bloqueado"`
	FchBaja     string `xml:"FchBaja"`
}
