// Package extract implements deterministic field mapping over OCR layout
// blocks. An ordered registry of pattern extractors runs per document
// type; every candidate carries evidence and candidates for the same
// field resolve by highest confidence.
package extract

// DocumentType classifies a document within an application package.
type DocumentType string

// Known planning document types.
const (
	TypeApplicationForm      DocumentType = "application_form"
	TypeLocationPlan         DocumentType = "location_plan"
	TypeSitePlan             DocumentType = "site_plan"
	TypeDesignStatement      DocumentType = "design_statement"
	TypeOwnershipCertificate DocumentType = "ownership_certificate"
	TypeFeeReceipt           DocumentType = "fee_receipt"
	TypeOther                DocumentType = "other"
)

// Canonical field names produced by the built-in extractors.
const (
	FieldApplicationReference = "application_reference"
	FieldSiteAddress          = "site_address"
	FieldSitePostcode         = "site_postcode"
	FieldApplicantName        = "applicant_name"
	FieldProposal             = "proposal_description"
	FieldApplicationDate      = "application_date"
	FieldCertificateType      = "certificate_type"
	FieldSignatures           = "signatures"
	FieldIsSigned             = "is_signed"
	FieldFeePaidAmount        = "fee_paid_amount"
	FieldExemptionClaimed     = "exemption_claimed"
	FieldSiteAreaSqm          = "site_area_sqm"
	FieldBoundarySetbackM     = "boundary_setback_m"
)

// FeeBounds are the sanity limits for extracted fee amounts in pounds.
// Candidates outside the range are rejected outright rather than kept
// at low confidence.
const (
	FeeMin = 50.0
	FeeMax = 50_000.0
)
