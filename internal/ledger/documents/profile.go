package documents

import "fmt"

// Profile declares which mapping type codes a document class posts through.
// Every amount produces one debit and one credit resolution, so the batch
// balances by construction; which side carries the control account and which
// the offset is entirely data-driven.
type Profile struct {
	LineDebitType     string
	LineCreditType    string
	FreightDebitType  string
	FreightCreditType string
	TaxDebitType      string
	TaxCreditType     string
}

// Validate checks that the profile names a complete pair for lines and for
// any freight/tax side it declares.
func (p Profile) Validate() error {
	if p.LineDebitType == "" || p.LineCreditType == "" {
		return fmt.Errorf("ledger: posting profile missing line type pair")
	}
	if (p.FreightDebitType == "") != (p.FreightCreditType == "") {
		return fmt.Errorf("ledger: posting profile has unpaired freight types")
	}
	if (p.TaxDebitType == "") != (p.TaxCreditType == "") {
		return fmt.Errorf("ledger: posting profile has unpaired tax types")
	}
	return nil
}

// DefaultProfiles returns the stock document-class profiles. Sales documents
// debit the receivables control and credit revenue; purchase documents debit
// expense and credit the payables control. Memos swap the sides of their
// parent class.
func DefaultProfiles() map[DocumentType]Profile {
	return map[DocumentType]Profile{
		DocTypeInvoice: {
			LineDebitType: "AR", LineCreditType: "REVENUE",
			FreightDebitType: "AR", FreightCreditType: "FREIGHT_OUT",
			TaxDebitType: "AR", TaxCreditType: "TAX_PAYABLE",
		},
		DocTypeCreditMemo: {
			LineDebitType: "REVENUE", LineCreditType: "AR",
			FreightDebitType: "FREIGHT_OUT", FreightCreditType: "AR",
			TaxDebitType: "TAX_PAYABLE", TaxCreditType: "AR",
		},
		DocTypeBill: {
			LineDebitType: "EXPENSE", LineCreditType: "AP",
			FreightDebitType: "FREIGHT_IN", FreightCreditType: "AP",
			TaxDebitType: "TAX_RECEIVABLE", TaxCreditType: "AP",
		},
		DocTypeDebitMemo: {
			LineDebitType: "AP", LineCreditType: "EXPENSE",
			FreightDebitType: "AP", FreightCreditType: "FREIGHT_IN",
			TaxDebitType: "AP", TaxCreditType: "TAX_RECEIVABLE",
		},
		DocTypeVoucher: {
			LineDebitType: "EXPENSE", LineCreditType: "AP",
			FreightDebitType: "FREIGHT_IN", FreightCreditType: "AP",
			TaxDebitType: "TAX_RECEIVABLE", TaxCreditType: "AP",
		},
	}
}
