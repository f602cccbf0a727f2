// internal/payments/mtn.go
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/models"
)

// MTNProvider talks to the MTN MoMo collection API. The payment's own id
// doubles as the X-Reference-Id the API requires, and the internal
// transaction id travels as externalId so settlement can be correlated on
// either side.
type MTNProvider struct {
	cfg      config.MTNConfig
	currency string
	client   *http.Client
	log      *logrus.Entry
}

func NewMTNProvider(cfg config.MTNConfig, currency string) *MTNProvider {
	return &MTNProvider{
		cfg:      cfg,
		currency: currency,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logrus.WithField("provider", "mtn"),
	}
}

func (p *MTNProvider) Name() models.PaymentProvider {
	return models.PaymentProviderMTN
}

func (p *MTNProvider) ValidatePhoneNumber(phone string) bool {
	return validPrefix(NormalizePhone(phone), "mtn")
}

type mtnTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type mtnRequestToPay struct {
	Amount       string   `json:"amount"`
	Currency     string   `json:"currency"`
	ExternalID   string   `json:"externalId"`
	Payer        mtnParty `json:"payer"`
	PayerMessage string   `json:"payerMessage"`
	PayeeNote    string   `json:"payeeNote"`
}

type mtnParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type mtnStatusResponse struct {
	Status                 string `json:"status"`
	FinancialTransactionID string `json:"financialTransactionId"`
	ExternalID             string `json:"externalId"`
	Reason                 struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"reason"`
}

func (p *MTNProvider) Initiate(ctx context.Context, payment *models.Payment) (*InitiationResult, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("mtn token request failed: %w", err)
	}

	body := mtnRequestToPay{
		Amount:     strconv.FormatFloat(payment.Amount, 'f', -1, 64),
		Currency:   p.currency,
		ExternalID: payment.TransactionID,
		Payer: mtnParty{
			PartyIDType: "MSISDN",
			PartyID:     NormalizePhone(payment.PhoneNumber),
		},
		PayerMessage: "TuneSoko order payment",
		PayeeNote:    payment.TransactionID,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	referenceID := payment.ID.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Reference-Id", referenceID)
	req.Header.Set("X-Target-Environment", p.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.SubscriptionKey)
	if p.cfg.CallbackURL != "" {
		req.Header.Set("X-Callback-Url", p.cfg.CallbackURL)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mtn requesttopay failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		p.log.WithFields(logrus.Fields{
			"transaction_id": payment.TransactionID,
			"status_code":    resp.StatusCode,
		}).Warn("MTN rejected payment initiation")
		return &InitiationResult{
			Success:       false,
			Message:       fmt.Sprintf("MTN rejected the payment request (HTTP %d)", resp.StatusCode),
			TransactionID: payment.TransactionID,
		}, nil
	}

	return &InitiationResult{
		Success:           true,
		Message:           "Payment request sent. Approve the prompt on your phone.",
		TransactionID:     payment.TransactionID,
		ProviderReference: referenceID,
		Instructions:      "Enter your MTN MoMo PIN on your phone to approve the payment.",
	}, nil
}

func (p *MTNProvider) CheckStatus(ctx context.Context, payment *models.Payment) (*StatusResult, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("mtn token request failed: %w", err)
	}

	referenceID := payment.ProviderReference
	if referenceID == "" {
		referenceID = payment.ID.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/collection/v1_0/requesttopay/"+referenceID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Target-Environment", p.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.SubscriptionKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mtn status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mtn status check returned HTTP %d", resp.StatusCode)
	}

	var status mtnStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode mtn status response: %w", err)
	}

	result := &StatusResult{
		Success:               true,
		Status:                NormalizeStatus(status.Status),
		ExternalTransactionID: status.FinancialTransactionID,
		ProviderReference:     referenceID,
	}
	if result.Status == StatusFailed {
		result.FailureReason = status.Reason.Message
		if result.FailureReason == "" {
			result.FailureReason = status.Reason.Code
		}
	}

	return result, nil
}

func (p *MTNProvider) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/collection/token/", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.APIUser, p.cfg.APIKey)
	req.Header.Set("Ocp-Apim-Subscription-Key", p.cfg.SubscriptionKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var token mtnTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	return token.AccessToken, nil
}
