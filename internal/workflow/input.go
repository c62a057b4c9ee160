package workflow

import (
	"fmt"

	dErrors "trustid/pkg/domain-errors"
)

// DocumentKind is the identity document declared when starting a case. The
// document itself is never stored.
type DocumentKind string

const (
	DocumentPassport DocumentKind = "passport"
	DocumentIDCard   DocumentKind = "id_card"
	DocumentPDF      DocumentKind = "pdf"
)

// MaxDocumentBytes is the largest declared document accepted.
const MaxDocumentBytes = 10 << 20

// CaseInput is what the customer supplies when starting a case. Every field is
// optional.
type CaseInput struct {
	DocumentKind  DocumentKind `json:"document_kind,omitempty"`
	DocumentBytes int64        `json:"document_bytes,omitempty"`
}

func (in CaseInput) Validate() error {
	switch in.DocumentKind {
	case "", DocumentPassport, DocumentIDCard, DocumentPDF:
	default:
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported document kind %q", in.DocumentKind))
	}
	if in.DocumentBytes < 0 || in.DocumentBytes > MaxDocumentBytes {
		return dErrors.New(dErrors.CodeInvalidInput, "document must be at most 10MB")
	}
	return nil
}
