package ledger

import "strings"

// CompanyListField is the report field holding each company name. The ledger
// application emits it as a tag with the spaces removed.
const CompanyListField = "List of Companies"

// companyListEnvelope asks for every company object and exports its name.
// The ledger application rejects requests that deviate from this layout.
const companyListEnvelope = `<ENVELOPE>` +
	`<HEADER><TALLYREQUEST>Export Data</TALLYREQUEST></HEADER>` +
	`<BODY><EXPORTDATA>` +
	`<REQUESTDESC>` +
	`<REPORTNAME>List of Companies</REPORTNAME>` +
	`<STATICVARIABLES><SVEXPORTFORMAT>$$SysName:XML</SVEXPORTFORMAT></STATICVARIABLES>` +
	`</REQUESTDESC>` +
	`<TDL><TDLMESSAGE>` +
	`<REPORT NAME="List of Companies"><FORMS>List of Companies</FORMS></REPORT>` +
	`<FORM NAME="List of Companies"><TOPPARTS>List of Companies</TOPPARTS></FORM>` +
	`<PART NAME="List of Companies"><TOPLINES>List of Companies</TOPLINES>` +
	`<REPEAT>List of Companies : Collection of Companies</REPEAT><SCROLLED>Vertical</SCROLLED></PART>` +
	`<LINE NAME="List of Companies"><LEFTFIELDS>List of Companies</LEFTFIELDS></LINE>` +
	`<FIELD NAME="List of Companies"><SET>$Name</SET></FIELD>` +
	`<COLLECTION NAME="Collection of Companies"><TYPE>Company</TYPE><FETCH>NAME</FETCH></COLLECTION>` +
	`</TDLMESSAGE></TDL>` +
	`</EXPORTDATA></BODY>` +
	`</ENVELOPE>`

// statusProbeEnvelope has the same shape without a report definition; only
// whether the application answers matters.
const statusProbeEnvelope = `<ENVELOPE>` +
	`<HEADER><TALLYREQUEST>Export Data</TALLYREQUEST></HEADER>` +
	`<BODY><EXPORTDATA>` +
	`<REQUESTDESC><REPORTNAME>List of Companies</REPORTNAME></REQUESTDESC>` +
	`</EXPORTDATA></BODY>` +
	`</ENVELOPE>`

// CompanyListRequest returns the envelope requesting all company names
func CompanyListRequest() []byte {
	return []byte(companyListEnvelope)
}

// StatusProbeRequest returns the envelope used to probe connectivity
func StatusProbeRequest() []byte {
	return []byte(statusProbeEnvelope)
}

// FieldTag returns the tag the ledger application uses for a report field
func FieldTag(field string) string {
	return strings.Join(strings.Fields(field), "")
}
