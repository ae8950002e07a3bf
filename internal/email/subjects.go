package email

const (
	subjectVisitSubmittedFmt  = "Visit %s submitted for review"
	subjectVisitApprovedFmt   = "Visit %s approved"
	subjectVisitRejectedFmt   = "Visit %s rejected"
	subjectVisitCorrectionFmt = "Visit %s needs correction"
	subjectLowStockFmt        = "Low stock: %s"
)
