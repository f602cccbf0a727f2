// internal/payments/airtel.go
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tunesoko/tunesoko-backend/internal/config"
	"github.com/tunesoko/tunesoko-backend/internal/models"
)

// AirtelProvider talks to the Airtel Money merchant collection API. Airtel
// addresses subscribers by msisdn without the country code and reports
// status as SUCCESS/REJECTED/ONGOING, which NormalizeStatus collapses onto
// the internal vocabulary.
type AirtelProvider struct {
	cfg    config.AirtelConfig
	client *http.Client
	log    *logrus.Entry
}

func NewAirtelProvider(cfg config.AirtelConfig) *AirtelProvider {
	return &AirtelProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    logrus.WithField("provider", "airtel"),
	}
}

func (p *AirtelProvider) Name() models.PaymentProvider {
	return models.PaymentProviderAirtel
}

func (p *AirtelProvider) ValidatePhoneNumber(phone string) bool {
	return validPrefix(NormalizePhone(phone), "airtel")
}

type airtelTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type airtelPaymentRequest struct {
	Reference   string            `json:"reference"`
	Subscriber  airtelSubscriber  `json:"subscriber"`
	Transaction airtelTransaction `json:"transaction"`
}

type airtelSubscriber struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
	MSISDN   string `json:"msisdn"`
}

type airtelTransaction struct {
	Amount   float64 `json:"amount"`
	Country  string  `json:"country"`
	Currency string  `json:"currency"`
	ID       string  `json:"id"`
}

type airtelPaymentResponse struct {
	Data struct {
		Transaction struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Success bool   `json:"success"`
	} `json:"status"`
}

type airtelStatusResponse struct {
	Data struct {
		Transaction struct {
			ID            string `json:"id"`
			AirtelMoneyID string `json:"airtel_money_id"`
			Status        string `json:"status"`
			Message       string `json:"message"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Success bool   `json:"success"`
	} `json:"status"`
}

func (p *AirtelProvider) Initiate(ctx context.Context, payment *models.Payment) (*InitiationResult, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("airtel token request failed: %w", err)
	}

	// Airtel wants the subscriber number without the country code.
	msisdn := NormalizePhone(payment.PhoneNumber)
	if len(msisdn) > len(ugandaCountryCode) {
		msisdn = msisdn[len(ugandaCountryCode):]
	}

	body := airtelPaymentRequest{
		Reference: payment.TransactionID,
		Subscriber: airtelSubscriber{
			Country:  p.cfg.Country,
			Currency: p.cfg.Currency,
			MSISDN:   msisdn,
		},
		Transaction: airtelTransaction{
			Amount:   payment.Amount,
			Country:  p.cfg.Country,
			Currency: p.cfg.Currency,
			ID:       payment.TransactionID,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/merchant/v1/payments/", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Country", p.cfg.Country)
	req.Header.Set("X-Currency", p.cfg.Currency)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtel payment request failed: %w", err)
	}
	defer resp.Body.Close()

	var paymentResp airtelPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&paymentResp); err != nil {
		return nil, fmt.Errorf("failed to decode airtel response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !paymentResp.Status.Success {
		p.log.WithFields(logrus.Fields{
			"transaction_id": payment.TransactionID,
			"status_code":    resp.StatusCode,
			"provider_code":  paymentResp.Status.Code,
		}).Warn("Airtel rejected payment initiation")

		message := paymentResp.Status.Message
		if message == "" {
			message = fmt.Sprintf("Airtel rejected the payment request (HTTP %d)", resp.StatusCode)
		}
		return &InitiationResult{
			Success:       false,
			Message:       message,
			TransactionID: payment.TransactionID,
		}, nil
	}

	return &InitiationResult{
		Success:           true,
		Message:           "Payment request sent. Approve the prompt on your phone.",
		TransactionID:     payment.TransactionID,
		ProviderReference: paymentResp.Data.Transaction.ID,
		Instructions:      "Enter your Airtel Money PIN on your phone to approve the payment.",
	}, nil
}

func (p *AirtelProvider) CheckStatus(ctx context.Context, payment *models.Payment) (*StatusResult, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("airtel token request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.cfg.BaseURL+"/standard/v1/payments/"+payment.TransactionID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Country", p.cfg.Country)
	req.Header.Set("X-Currency", p.cfg.Currency)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtel status check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("airtel status check returned HTTP %d", resp.StatusCode)
	}

	var status airtelStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode airtel status response: %w", err)
	}

	result := &StatusResult{
		Success:               true,
		Status:                NormalizeStatus(status.Data.Transaction.Status),
		ExternalTransactionID: status.Data.Transaction.AirtelMoneyID,
		ProviderReference:     status.Data.Transaction.ID,
	}
	if result.Status == StatusFailed {
		result.FailureReason = status.Data.Transaction.Message
		if result.FailureReason == "" {
			result.FailureReason = status.Status.Message
		}
	}

	return result, nil
}

func (p *AirtelProvider) fetchToken(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     p.cfg.ClientID,
		"client_secret": p.cfg.ClientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/auth/oauth2/token", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned HTTP %d", resp.StatusCode)
	}

	var token airtelTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	return token.AccessToken, nil
}
