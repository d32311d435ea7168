package types

type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
	// PaymentProviderInner marks plans granted by an operator rather than bought.
	PaymentProviderInner PaymentProvider = "inner"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type UsageKind string

const (
	UsageKindDownload  UsageKind = "download"
	UsageKindAIRequest UsageKind = "ai_request"
)

func (k UsageKind) Valid() bool {
	return k == UsageKindDownload || k == UsageKindAIRequest
}

// Column returns the payment counter column that tracks this kind.
func (k UsageKind) Column() string {
	switch k {
	case UsageKindDownload:
		return "downloads_used"
	case UsageKindAIRequest:
		return "ai_requests_used"
	default:
		return ""
	}
}

// PaymentChangeReason explains a payment_log entry.
type PaymentChangeReason string

const (
	PaymentChangeReasonPurchase    PaymentChangeReason = "purchase"
	PaymentChangeReasonGift        PaymentChangeReason = "gift"
	PaymentChangeReasonUsage       PaymentChangeReason = "usage"
	PaymentChangeReasonUsageRefund PaymentChangeReason = "usage_refund"
)
