package handlers

import (
	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/gate"
	"github.com/fatflowers/resumely/internal/app/service/payment"
	"github.com/fatflowers/resumely/internal/app/service/statistics"
	"github.com/fatflowers/resumely/internal/app/service/usage"
	"github.com/fatflowers/resumely/internal/models"
	"github.com/fatflowers/resumely/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespError documents the envelope of a failed call.
type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    response.ErrorData       `json:"data"`
}

type RespEntitlement struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    entitlement.View         `json:"data"`
}

type RespUsage struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    usage.Result             `json:"data"`
}

type RespVerifyPayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    VerifyPaymentResponse    `json:"data"`
}

type RespCheckout struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    payment.CheckoutResult   `json:"data"`
}

type RespEnhance struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    gate.EnhanceResult       `json:"data"`
}

type RespDraft struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.CVDraft           `json:"data"`
}

type RespDrafts struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.CVDraft         `json:"data"`
}

// RespListPayments wraps ScanPaymentsResponse in the standard envelope.
type RespListPayments struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    payment.ScanPaymentsResponse `json:"data"`
}

// RespPaymentStatistic wraps PaymentStatisticResponse in the standard envelope.
type RespPaymentStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.PaymentStatisticResponse `json:"data"`
}

type RespGrant struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.Payment           `json:"data"`
}
