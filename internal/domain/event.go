package domain

// Document event kinds pushed to connected clients.
const (
	EventFormIssued        = "form_issued"
	EventFormDeleted       = "form_deleted"
	EventDocumentClaimed   = "document_claimed"
	EventDocumentsStored   = "documents_stored"
	EventDocumentCancelled = "document_cancelled"
	EventDocumentUpdated   = "document_updated"
	EventFeedbackChanged   = "feedback_changed"
	EventSupplierChanged   = "supplier_changed"
	EventPurchaseChanged   = "purchase_changed"
)

type FormEvent struct {
	OriginalDocNo string `json:"original_doc_no"`
	DocVer        string `json:"doc_ver"`
	By            string `json:"by"`
}

type ClaimEvent struct {
	IDNos []string `json:"id_nos"`
	By    string   `json:"by"`
}

type SupplierEvent struct {
	SupplierName string `json:"supplier_name"`
	ProductClass string `json:"product_class"`
	Result       string `json:"result"`
	By           string `json:"by"`
}
