// Package billing wraps the third-party payment gateway used for credit
// package purchases. Per-booking debits never touch the gateway; those are
// internal ledger moves.
package billing

import (
	"context"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

type ChargeInput struct {
	AmountCents int64
	Currency    string
	CardToken   string
	Reference   string
	Metadata    map[string]any
}

type ChargeResult struct {
	PaymentID      string
	Succeeded      bool
	FailureMessage string
}

type OmiseGateway struct {
	client *omise.Client
}

func NewOmiseGateway(publicKey, secretKey string) (*OmiseGateway, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	client.SetDebug(false)
	return &OmiseGateway{client: client}, nil
}

func (g *OmiseGateway) Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	metadata := map[string]any{"reference": input.Reference}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	charge := &omise.Charge{}
	err := g.client.Do(charge, &operations.CreateCharge{
		Amount:   input.AmountCents,
		Currency: input.Currency,
		Card:     input.CardToken,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	result := &ChargeResult{PaymentID: charge.ID}
	switch string(charge.Status) {
	case "successful":
		result.Succeeded = true
	default:
		// pending / awaiting_authorize are treated as not-yet-paid; the
		// purchase flow only credits on a definitive success.
		if charge.FailureMessage != nil {
			result.FailureMessage = *charge.FailureMessage
		} else if charge.FailureCode != nil {
			result.FailureMessage = *charge.FailureCode
		} else {
			result.FailureMessage = "charge not successful: " + string(charge.Status)
		}
	}
	return result, nil
}
